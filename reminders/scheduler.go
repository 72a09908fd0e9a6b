// Package reminders arms client-local alerts for task reminders and keeps
// them in step with edits to the task.
package reminders

import (
	"sort"
	"sync"
	"time"

	"notewiz-notes/notewiz/internal/clock"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultBody is shown when the task has no description.
const DefaultBody = "Reminder time has arrived!"

// State is the reminder lifecycle of a single task. A cancelled trigger
// returns the task to NoTrigger.
type State string

const (
	NoTrigger State = "none"
	Scheduled State = "scheduled"
	Fired     State = "fired"
)

// Trigger is one armed alert.
type Trigger struct {
	TaskID uuid.UUID `json:"task_id"`
	FireAt time.Time `json:"fire_at"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

// Alerter presents a fired trigger to the user.
type Alerter interface {
	Alert(trigger Trigger)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(trigger Trigger)

func (f AlerterFunc) Alert(trigger Trigger) { f(trigger) }

type armed struct {
	trigger Trigger
	timer   clock.Timer
}

// Scheduler holds at most one live trigger per task.
type Scheduler struct {
	clock   clock.Clock
	alerter Alerter

	mu     sync.Mutex
	live   map[uuid.UUID]*armed
	states map[uuid.UUID]State
	closed bool
}

// NewScheduler uses the real clock when c is nil.
func NewScheduler(c clock.Clock, alerter Alerter) *Scheduler {
	if c == nil {
		c = clock.Real{}
	}
	return &Scheduler{
		clock:   c,
		alerter: alerter,
		live:    make(map[uuid.UUID]*armed),
		states:  make(map[uuid.UUID]State),
	}
}

// Schedule arms a trigger for task, replacing any existing one. A task that
// fails validation is left untouched.
func (s *Scheduler) Schedule(task models.Task) (Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(task)
}

func (s *Scheduler) scheduleLocked(task models.Task) (Trigger, error) {
	if s.closed {
		return Trigger{}, ErrSchedulerClosed
	}
	if task.Reminder == nil {
		return Trigger{}, ErrReminderMissing
	}
	fireAt := task.Reminder.UTC()
	if task.DueDate != nil && !fireAt.Before(task.DueDate.UTC()) {
		return Trigger{}, ErrReminderAfterDue
	}
	now := s.clock.Now()
	if !fireAt.After(now) {
		return Trigger{}, ErrReminderInPast
	}

	s.cancelLocked(task.ID)

	body := task.Description
	if body == "" {
		body = DefaultBody
	}
	entry := &armed{trigger: Trigger{
		TaskID: task.ID,
		FireAt: fireAt,
		Title:  task.Title,
		Body:   body,
	}}
	entry.timer = s.clock.AfterFunc(fireAt.Sub(now), func() { s.fire(entry) })
	s.live[task.ID] = entry
	s.states[task.ID] = Scheduled

	log.Debug().Str("taskID", task.ID.String()).Time("fireAt", fireAt).Msg("Reminder scheduled")
	return entry.trigger, nil
}

// Cancel removes the task's live trigger, if any.
func (s *Scheduler) Cancel(taskID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(taskID)
}

func (s *Scheduler) cancelLocked(taskID uuid.UUID) {
	entry, ok := s.live[taskID]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(s.live, taskID)
	delete(s.states, taskID)
}

// OnDueDateOrReminderChanged re-derives the trigger after an edit. The old
// trigger is always cancelled first, so a rejected edit leaves none.
func (s *Scheduler) OnDueDateOrReminderChanged(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(task.ID)
	if task.IsCompleted || task.Reminder == nil {
		return nil
	}
	_, err := s.scheduleLocked(task)
	if err != nil {
		log.Debug().Err(err).Str("taskID", task.ID.String()).Msg("Reminder not rescheduled")
	}
	return err
}

func (s *Scheduler) OnCompleted(taskID uuid.UUID) { s.Cancel(taskID) }

func (s *Scheduler) OnDeleted(taskID uuid.UUID) { s.Cancel(taskID) }

// Reconcile derives triggers from a full task listing, as fetched after a
// reconnect. Tasks missing from the listing lose their trigger. The returned
// map holds the tasks whose reminder could not be armed.
func (s *Scheduler) Reconcile(tasks []models.Task) map[uuid.UUID]error {
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	failed := make(map[uuid.UUID]error)
	for _, task := range tasks {
		seen[task.ID] = struct{}{}
		if err := s.OnDueDateOrReminderChanged(task); err != nil {
			failed[task.ID] = err
		}
	}

	s.mu.Lock()
	for taskID := range s.live {
		if _, ok := seen[taskID]; !ok {
			s.cancelLocked(taskID)
		}
	}
	s.mu.Unlock()
	return failed
}

// CatchUp fires every scheduled trigger whose time has passed without its
// timer running, for example while the device slept.
func (s *Scheduler) CatchUp() []Trigger {
	now := s.clock.Now()
	s.mu.Lock()
	var due []*armed
	for _, entry := range s.live {
		if !entry.trigger.FireAt.After(now) {
			due = append(due, entry)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].trigger.FireAt.Before(due[j].trigger.FireAt)
	})
	fired := make([]Trigger, 0, len(due))
	for _, entry := range due {
		if s.fire(entry) {
			fired = append(fired, entry.trigger)
		}
	}
	return fired
}

// fire delivers entry if it is still the task's live trigger.
func (s *Scheduler) fire(entry *armed) bool {
	s.mu.Lock()
	current, ok := s.live[entry.trigger.TaskID]
	if !ok || current != entry {
		s.mu.Unlock()
		return false
	}
	entry.timer.Stop()
	delete(s.live, entry.trigger.TaskID)
	s.states[entry.trigger.TaskID] = Fired
	s.mu.Unlock()

	log.Info().Str("taskID", entry.trigger.TaskID.String()).Str("title", entry.trigger.Title).Msg("Reminder fired")
	if s.alerter != nil {
		s.alerter.Alert(entry.trigger)
	}
	return true
}

// Pending returns the live trigger for taskID.
func (s *Scheduler) Pending(taskID uuid.UUID) (Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live[taskID]
	if !ok {
		return Trigger{}, false
	}
	return entry.trigger, true
}

func (s *Scheduler) State(taskID uuid.UUID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[taskID]; ok {
		return state
	}
	return NoTrigger
}

// Len is the number of live triggers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close stops every pending timer. Later calls to Schedule fail.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for taskID, entry := range s.live {
		entry.timer.Stop()
		delete(s.live, taskID)
		delete(s.states, taskID)
	}
	s.closed = true
}
