package reminders

import (
	"testing"
	"time"

	"notewiz-notes/notewiz/internal/clock"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type recorder struct {
	alerts []Trigger
}

func (r *recorder) Alert(trigger Trigger) { r.alerts = append(r.alerts, trigger) }

func newScheduler() (*Scheduler, *clock.Manual, *recorder) {
	c := clock.NewManual(start)
	rec := &recorder{}
	return NewScheduler(c, rec), c, rec
}

func at(d time.Duration) *time.Time {
	t := start.Add(d)
	return &t
}

func task(reminder, due *time.Time) models.Task {
	return models.Task{ID: uuid.New(), Title: "Pay rent", Reminder: reminder, DueDate: due}
}

func TestSchedule_Validation(t *testing.T) {
	s, c, _ := newScheduler()

	tests := []struct {
		name string
		task models.Task
		want error
	}{
		{name: "no reminder", task: task(nil, at(time.Hour)), want: ErrReminderMissing},
		{name: "reminder after due", task: task(at(2*time.Hour), at(time.Hour)), want: ErrReminderAfterDue},
		{name: "reminder equal to due", task: task(at(time.Hour), at(time.Hour)), want: ErrReminderAfterDue},
		{name: "reminder in past", task: task(at(-time.Minute), at(time.Hour)), want: ErrReminderInPast},
		{name: "reminder now", task: task(at(0), nil), want: ErrReminderInPast},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Schedule(tc.task)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, NoTrigger, s.State(tc.task.ID))
		})
	}
	assert.Zero(t, s.Len())
	assert.Zero(t, c.Pending())
}

func TestSchedule_FiresOnceWithDefaultBody(t *testing.T) {
	s, c, rec := newScheduler()
	tk := task(at(30*time.Minute), at(time.Hour))

	trigger, err := s.Schedule(tk)
	require.NoError(t, err)
	assert.Equal(t, DefaultBody, trigger.Body)
	assert.Equal(t, Scheduled, s.State(tk.ID))

	c.Advance(29 * time.Minute)
	assert.Empty(t, rec.alerts)

	c.Advance(time.Minute)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, tk.ID, rec.alerts[0].TaskID)
	assert.Equal(t, "Pay rent", rec.alerts[0].Title)
	assert.Equal(t, Fired, s.State(tk.ID))

	c.Advance(24 * time.Hour)
	assert.Len(t, rec.alerts, 1, "no auto-repeat")
}

func TestSchedule_ReplacesExistingTrigger(t *testing.T) {
	s, c, rec := newScheduler()
	tk := task(at(10*time.Minute), nil)
	_, err := s.Schedule(tk)
	require.NoError(t, err)

	tk.Reminder = at(20 * time.Minute)
	tk.Description = "Transfer before noon"
	_, err = s.Schedule(tk)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, c.Pending())

	c.Advance(15 * time.Minute)
	assert.Empty(t, rec.alerts)
	c.Advance(5 * time.Minute)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "Transfer before noon", rec.alerts[0].Body)
}

func TestOnDueDateOrReminderChanged_EditPastDueClearsTrigger(t *testing.T) {
	s, c, rec := newScheduler()
	tk := task(at(time.Hour), at(2*time.Hour))
	require.NoError(t, s.OnDueDateOrReminderChanged(tk))
	require.Equal(t, Scheduled, s.State(tk.ID))

	// due date moved before the reminder
	tk.DueDate = at(30 * time.Minute)
	err := s.OnDueDateOrReminderChanged(tk)
	assert.ErrorIs(t, err, ErrReminderAfterDue)
	_, live := s.Pending(tk.ID)
	assert.False(t, live)
	assert.Zero(t, c.Pending())

	c.Advance(3 * time.Hour)
	assert.Empty(t, rec.alerts)
}

func TestCompletionAndDeletionCancel(t *testing.T) {
	s, c, rec := newScheduler()
	done := task(at(time.Hour), nil)
	gone := task(at(time.Hour), nil)
	require.NoError(t, s.OnDueDateOrReminderChanged(done))
	require.NoError(t, s.OnDueDateOrReminderChanged(gone))

	done.IsCompleted = true
	require.NoError(t, s.OnDueDateOrReminderChanged(done))
	s.OnDeleted(gone.ID)
	s.OnCompleted(uuid.New())

	assert.Equal(t, NoTrigger, s.State(done.ID))
	assert.Equal(t, NoTrigger, s.State(gone.ID))
	assert.Empty(t, s.states)
	c.Advance(2 * time.Hour)
	assert.Empty(t, rec.alerts)

	// a cancelled task can be scheduled again
	done.IsCompleted = false
	done.Reminder = at(3 * time.Hour)
	require.NoError(t, s.OnDueDateOrReminderChanged(done))
	assert.Equal(t, Scheduled, s.State(done.ID))
}

func TestCatchUp_FiresOverdueTriggers(t *testing.T) {
	s, c, rec := newScheduler()
	first := task(at(10*time.Minute), nil)
	second := task(at(5*time.Minute), nil)
	later := task(at(5*time.Hour), nil)
	for _, tk := range []models.Task{first, second, later} {
		_, err := s.Schedule(tk)
		require.NoError(t, err)
	}

	c.Set(start.Add(time.Hour))
	fired := s.CatchUp()
	require.Len(t, fired, 2)
	assert.Equal(t, second.ID, fired[0].TaskID)
	assert.Equal(t, first.ID, fired[1].TaskID)
	assert.Len(t, rec.alerts, 2)

	// the stale timers no longer deliver
	c.Advance(0)
	assert.Len(t, rec.alerts, 2)
	assert.Equal(t, Scheduled, s.State(later.ID))
}

func TestReconcile(t *testing.T) {
	s, _, _ := newScheduler()
	kept := task(at(time.Hour), nil)
	dropped := task(at(time.Hour), nil)
	invalid := task(at(-time.Hour), nil)
	_, err := s.Schedule(dropped)
	require.NoError(t, err)

	failed := s.Reconcile([]models.Task{kept, invalid, task(nil, nil)})
	assert.Equal(t, map[uuid.UUID]error{invalid.ID: ErrReminderInPast}, failed)
	assert.Equal(t, Scheduled, s.State(kept.ID))
	assert.Equal(t, NoTrigger, s.State(dropped.ID))
	assert.Equal(t, 1, s.Len())
}

func TestClose(t *testing.T) {
	s, c, rec := newScheduler()
	tk := task(at(time.Minute), nil)
	_, err := s.Schedule(tk)
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Zero(t, c.Pending())
	assert.Equal(t, NoTrigger, s.State(tk.ID))
	assert.Empty(t, s.states)
	c.Advance(time.Hour)
	assert.Empty(t, rec.alerts)

	_, err = s.Schedule(task(at(2*time.Hour), nil))
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScheduler_RealClock(t *testing.T) {
	alerts := make(chan Trigger, 1)
	s := NewScheduler(nil, AlerterFunc(func(trigger Trigger) { alerts <- trigger }))
	defer s.Close()

	reminder := time.Now().Add(20 * time.Millisecond)
	tk := models.Task{ID: uuid.New(), Title: "soon", Reminder: &reminder}
	_, err := s.Schedule(tk)
	require.NoError(t, err)

	select {
	case got := <-alerts:
		assert.Equal(t, tk.ID, got.TaskID)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not fire")
	}
}
