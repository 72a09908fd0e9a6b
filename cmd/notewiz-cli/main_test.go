package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"notewiz-notes/notewiz/client"
	"notewiz-notes/notewiz/internal/clock"
	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/reminders"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBase(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", httpBase("ws://localhost:8080"))
	assert.Equal(t, "https://notes.example.com", httpBase("wss://notes.example.com"))
	assert.Equal(t, "http://already", httpBase("http://already"))
}

func writeTasks(t *testing.T, tasks []models.Task) string {
	t.Helper()
	data, err := json.Marshal(tasks)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRemindCommand(t *testing.T) {
	soon := time.Now().Add(300 * time.Millisecond)
	past := time.Now().Add(-time.Hour)
	due := time.Now().Add(time.Hour)
	path := writeTasks(t, []models.Task{
		{ID: uuid.New(), Title: "Stand-up", Reminder: &soon, DueDate: &due},
		{ID: uuid.New(), Title: "Yesterday", Reminder: &past},
		{ID: uuid.New(), Title: "No reminder"},
	})

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"remind", "--task-file", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "reminder time has already passed")
	assert.Contains(t, out.String(), "1 reminder(s) armed")
	assert.Contains(t, out.String(), "Stand-up: Reminder time has arrived!")
}

func TestReminderLoop_DeliversOverdueAfterSleep(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := clock.NewManual(start)
	var out bytes.Buffer
	loop := newReminderLoop(c, &out, 2)
	defer loop.scheduler.Close()
	var announced []string
	loop.announce = func(_ context.Context, trigger reminders.Trigger) error {
		announced = append(announced, trigger.Title)
		return nil
	}

	first := start.Add(10 * time.Minute)
	second := start.Add(20 * time.Minute)
	armed := loop.arm([]models.Task{
		{ID: uuid.New(), Title: "Stand-up", Reminder: &first},
		{ID: uuid.New(), Title: "Review", Description: "PR 12", Reminder: &second},
	})
	require.Equal(t, 2, armed)

	// the wall clock jumps past both reminders without their timers running
	c.Set(start.Add(time.Hour))
	assert.Empty(t, loop.fired)

	tick := make(chan time.Time, 1)
	tick <- c.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.wait(ctx, armed, tick))

	assert.Equal(t, []string{"Stand-up", "Review"}, announced)
	assert.Contains(t, out.String(), "Stand-up: Reminder time has arrived!")
	assert.Contains(t, out.String(), "Review: PR 12")
	assert.Zero(t, loop.scheduler.Len())
}

func TestLoadTasks_Errors(t *testing.T) {
	_, err := loadTasks(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = loadTasks(path)
	assert.ErrorContains(t, err, "parse task file")
}

func TestPostReminder(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	trigger := reminders.Trigger{TaskID: uuid.New(), Title: "Stand-up", Body: "Room 4"}
	require.NoError(t, postReminder(context.Background(), server.URL, "good", trigger))
	assert.Equal(t, "task_reminder", got["type"])
	assert.Equal(t, trigger.TaskID.String(), got["related_entity_id"])

	err := postReminder(context.Background(), server.URL, "stale", trigger)
	assert.ErrorIs(t, err, client.ErrSessionExpired)
}
