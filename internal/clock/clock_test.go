package clock_test

import (
	"testing"
	"time"

	"notewiz-notes/notewiz/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealNowUsesUTC(t *testing.T) {
	t.Parallel()

	now := clock.Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	delta := time.Since(now)
	assert.True(t, delta >= 0 && delta < time.Second, "unexpected Now delta: %v", delta)
}

func TestRealAfterFuncCanBeStopped(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 1)
	timer := clock.Real{}.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Real{}.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc did not fire")
	}
}

func TestManualAdvanceFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := clock.NewManual(start)

	var order []string
	m.AfterFunc(2*time.Minute, func() { order = append(order, "late") })
	m.AfterFunc(time.Minute, func() { order = append(order, "early") })
	stopped := m.AfterFunc(90*time.Second, func() { order = append(order, "stopped") })
	ch := m.After(time.Minute)
	require.Equal(t, 4, m.Pending())

	assert.True(t, stopped.Stop())
	m.Advance(30 * time.Second)
	assert.Empty(t, order)

	now := m.Advance(2 * time.Minute)
	assert.Equal(t, start.Add(150*time.Second), now)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, start.Add(150*time.Second), <-ch)
	assert.Zero(t, m.Pending())
}

func TestManualCallbackMayReschedule(t *testing.T) {
	m := clock.NewManual(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			m.AfterFunc(time.Second, tick)
		}
	}
	m.AfterFunc(time.Second, tick)

	for i := 0; i < 5; i++ {
		m.Advance(time.Second)
	}
	assert.Equal(t, 3, count)
}

func TestManualSetDoesNotFire(t *testing.T) {
	start := time.Unix(0, 0)
	m := clock.NewManual(start)
	fired := false
	m.AfterFunc(time.Minute, func() { fired = true })

	m.Set(start.Add(time.Hour))
	assert.False(t, fired)
	assert.Equal(t, 1, m.Pending())

	m.Advance(0)
	assert.True(t, fired)
}
