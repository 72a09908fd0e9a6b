package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notewiz-notes/notewiz/client"
	"notewiz-notes/notewiz/internal/clock"
	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/reminders"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWatchCommand() *cobra.Command {
	var noteID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a note session and print collaboration events",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(client.Options{
				URL:   viper.GetString(serverKey) + client.NotesHub,
				Token: viper.GetString(tokenKey),
			})
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			defer c.Close()
			if err := c.JoinSession(noteID); err != nil {
				return err
			}
			return printEvents(cmd.Context(), cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&noteID, "note", "", "note ID to join")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func newNotificationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Print notifications pushed to this account",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			server := viper.GetString(serverKey)
			token := viper.GetString(tokenKey)

			c := client.New(client.Options{
				URL:   server + client.NotificationsHub,
				Token: token,
				OnReconnect: func() {
					unread, err := fetchUnread(cmd.Context(), httpBase(server), token)
					if err != nil {
						fmt.Fprintf(out, "refetch failed: %v\n", err)
						return
					}
					fmt.Fprintf(out, "reconnected, %d unread\n", len(unread))
				},
			})
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			defer c.Close()
			return printEvents(cmd.Context(), out, c)
		},
	}
}

// catchUpInterval is how often remind compares pending reminders against the
// wall clock. Timers do not advance while the machine is suspended.
const catchUpInterval = 30 * time.Second

func newRemindCommand() *cobra.Command {
	var (
		taskFile string
		announce bool
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Arm local reminders for the tasks in a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := loadTasks(taskFile)
			if err != nil {
				return err
			}
			loop := newReminderLoop(clock.Real{}, cmd.OutOrStdout(), len(tasks))
			defer loop.scheduler.Close()
			if announce {
				server := httpBase(viper.GetString(serverKey))
				token := viper.GetString(tokenKey)
				loop.announce = func(ctx context.Context, t reminders.Trigger) error {
					return postReminder(ctx, server, token, t)
				}
			}

			armed := loop.arm(tasks)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(catchUpInterval)
			defer ticker.Stop()
			return loop.wait(ctx, armed, ticker.C)
		},
	}
	cmd.Flags().StringVar(&taskFile, "task-file", "tasks.json", "JSON array of tasks")
	cmd.Flags().BoolVar(&announce, "announce", false, "also post each fired reminder as a notification to every device")
	return cmd
}

type reminderLoop struct {
	scheduler *reminders.Scheduler
	fired     chan reminders.Trigger
	out       io.Writer
	announce  func(ctx context.Context, t reminders.Trigger) error
}

func newReminderLoop(c clock.Clock, out io.Writer, capacity int) *reminderLoop {
	fired := make(chan reminders.Trigger, capacity)
	return &reminderLoop{
		scheduler: reminders.NewScheduler(c, reminders.AlerterFunc(func(t reminders.Trigger) {
			fired <- t
		})),
		fired: fired,
		out:   out,
	}
}

// arm schedules every task and returns how many reminders are live.
func (l *reminderLoop) arm(tasks []models.Task) int {
	for taskID, err := range l.scheduler.Reconcile(tasks) {
		fmt.Fprintf(l.out, "skipping %s: %v\n", taskID, err)
	}
	armed := l.scheduler.Len()
	fmt.Fprintf(l.out, "%d reminder(s) armed\n", armed)
	return armed
}

// wait prints reminders as they fire until armed of them have fired or ctx
// ends. Each tick on catchUp delivers overdue reminders whose timer has not
// run yet, late rather than never.
func (l *reminderLoop) wait(ctx context.Context, armed int, catchUp <-chan time.Time) error {
	for armed > 0 {
		select {
		case t := <-l.fired:
			armed--
			fmt.Fprintf(l.out, "[%s] %s: %s\n", t.FireAt.Local().Format(time.Kitchen), t.Title, t.Body)
			if l.announce != nil {
				if err := l.announce(ctx, t); err != nil {
					fmt.Fprintf(l.out, "announce failed: %v\n", err)
				}
			}
		case <-catchUp:
			if late := l.scheduler.CatchUp(); len(late) > 0 {
				log.Debug().Int("count", len(late)).Msg("Delivering overdue reminders")
			}
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// postReminder records a fired reminder on the server, which pushes it to
// the user's other devices.
func postReminder(ctx context.Context, base, token string, t reminders.Trigger) error {
	taskID := t.TaskID
	body, err := json.Marshal(map[string]interface{}{
		"title":               t.Title,
		"message":             t.Body,
		"type":                models.TaskReminderNotification,
		"related_entity_id":   &taskID,
		"related_entity_type": "task",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return client.ErrSessionExpired
	}
	if resp.StatusCode != http.StatusCreated {
		return errors.New(resp.Status)
	}
	return nil
}

func printEvents(ctx context.Context, out io.Writer, c *client.Client) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(out)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return c.Err()
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		case <-ticker.C:
			if c.State() == client.StateDisconnected {
				return c.Err()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func loadTasks(path string) ([]models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	return tasks, nil
}

// httpBase maps the websocket base URL onto the REST base URL.
func httpBase(server string) string {
	switch {
	case strings.HasPrefix(server, "wss://"):
		return "https://" + strings.TrimPrefix(server, "wss://")
	case strings.HasPrefix(server, "ws://"):
		return "http://" + strings.TrimPrefix(server, "ws://")
	}
	return server
}

func fetchUnread(ctx context.Context, base, token string) ([]models.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/notifications?unread=true", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, client.ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	var notifications []models.Notification
	if err := json.NewDecoder(resp.Body).Decode(&notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
