// Package client is a reconnecting hub client. It keeps the set of open note
// sessions locally and re-joins them after every reconnect.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"notewiz-notes/notewiz/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	NotesHub         = "/hubs/notes"
	NotificationsHub = "/hubs/notifications"

	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	eventBuffer = 64
)

var (
	ErrSessionExpired = errors.New("session expired, sign in again")
	ErrNotConnected   = errors.New("not connected")
)

// AuthError is returned when the hub rejects the token during the handshake.
// Reason carries the server's "missing", "invalid" or "expired".
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrSessionExpired, e.Reason)
}

func (e *AuthError) Unwrap() error { return ErrSessionExpired }

type Options struct {
	// URL is the websocket URL of a hub, e.g. ws://localhost:8080/hubs/notes.
	URL   string
	Token string

	// Retryer defaults to NewExponentialBackoffRetryer.
	Retryer Retryer
	Dialer  *websocket.Dialer

	// OnReconnect runs after a reconnect has re-joined the open sessions;
	// callers refetch anything they may have missed.
	OnReconnect func()
}

type Client struct {
	opts    Options
	retryer Retryer
	dialer  *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stateMu sync.Mutex
	state   State
	err     error

	// connMu guards conn and serializes writes on it.
	connMu sync.Mutex
	conn   *websocket.Conn

	notesMu sync.Mutex
	notes   map[string]struct{}

	events chan models.ServerEvent
}

func New(opts Options) *Client {
	retryer := opts.Retryer
	if retryer == nil {
		retryer = NewExponentialBackoffRetryer()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		retryer: retryer,
		dialer:  dialer,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateDisconnected,
		notes:   make(map[string]struct{}),
		events:  make(chan models.ServerEvent, eventBuffer),
	}
}

func (c *Client) transitionTo(next State) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if err := c.state.validateTransitionTo(next); err != nil {
		return err
	}
	c.state = next
	log.Debug().Str("url", c.opts.URL).Stringer("state", next).Msg("Client state transitioned")
	return nil
}

func (c *Client) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Err reports why the client stopped reconnecting, if it did.
func (c *Client) Err() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.err
}

// Events delivers server events. The channel is closed by Close.
func (c *Client) Events() <-chan models.ServerEvent {
	return c.events
}

// Connect dials the hub and starts the reconnect loop. A failed first dial
// is returned to the caller and not retried.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transitionTo(StateConnecting); err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.stop(err)
		return err
	}
	c.setConn(conn)
	if err := c.transitionTo(StateConnected); err != nil {
		conn.Close()
		return err
	}

	c.stateMu.Lock()
	c.err = nil
	c.stateMu.Unlock()

	c.rejoin()
	c.wg.Add(1)
	go c.run(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			authErr := &AuthError{}
			var body struct {
				Reason string `json:"reason"`
			}
			if resp.Body != nil && json.NewDecoder(resp.Body).Decode(&body) == nil {
				authErr.Reason = body.Reason
			}
			return nil, authErr
		}
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	return conn, nil
}

// stop records why the client gave up and returns it to Disconnected.
func (c *Client) stop(err error) {
	c.stateMu.Lock()
	c.err = err
	c.stateMu.Unlock()
	if stateErr := c.transitionTo(StateDisconnected); stateErr != nil {
		log.Debug().Err(stateErr).Msg("Client not moved to Disconnected")
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) clearConn(conn *websocket.Conn) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
}

func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		err := c.readLoop(conn)
		if c.ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("url", c.opts.URL).Msg("Connection lost, reconnecting")
		if err := c.transitionTo(StateConnecting); err != nil {
			return
		}
		if conn = c.reconnect(); conn == nil {
			return
		}
	}
}

func (c *Client) reconnect() *websocket.Conn {
	var lastErr error
	for attempt := 0; ; attempt++ {
		delay, ok := c.retryer.NextDelay(attempt, lastErr)
		if !ok {
			c.stop(fmt.Errorf("giving up after %d attempts: %w", attempt, lastErr))
			return nil
		}
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			if errors.Is(err, ErrSessionExpired) {
				log.Warn().Err(err).Msg("Reconnect rejected, sign in required")
				c.stop(err)
				return nil
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("Reconnect attempt failed")
			lastErr = err
			continue
		}

		c.retryer.Reset()
		c.setConn(conn)
		if err := c.transitionTo(StateConnected); err != nil {
			conn.Close()
			return nil
		}
		c.rejoin()
		log.Info().Str("url", c.opts.URL).Int("attempts", attempt+1).Msg("Reconnected")
		if c.opts.OnReconnect != nil {
			c.opts.OnReconnect()
		}
		return conn
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	defer func() {
		c.clearConn(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.ServerEvent
		if err := ev.FromJSON(data); err != nil {
			log.Debug().Err(err).Msg("Dropping undecodable server frame")
			continue
		}
		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

func (c *Client) send(method models.ClientMethod, params interface{}) error {
	msg, err := models.NewClientMessage(method, params)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) rejoin() {
	for _, noteID := range c.OpenNotes() {
		if err := c.send(models.JoinSession, models.NoteParams{NoteID: noteID}); err != nil {
			log.Warn().Err(err).Str("noteID", noteID).Msg("Failed to re-join note session")
		}
	}
}

// OpenNotes lists the note sessions that are re-joined on reconnect.
func (c *Client) OpenNotes() []string {
	c.notesMu.Lock()
	defer c.notesMu.Unlock()
	notes := make([]string, 0, len(c.notes))
	for noteID := range c.notes {
		notes = append(notes, noteID)
	}
	sort.Strings(notes)
	return notes
}

// JoinSession opens a note session. While disconnected the join is only
// recorded and goes out with the next reconnect.
func (c *Client) JoinSession(noteID string) error {
	c.notesMu.Lock()
	c.notes[noteID] = struct{}{}
	c.notesMu.Unlock()

	if err := c.send(models.JoinSession, models.NoteParams{NoteID: noteID}); !errors.Is(err, ErrNotConnected) {
		return err
	}
	return nil
}

func (c *Client) LeaveSession(noteID string) error {
	c.notesMu.Lock()
	delete(c.notes, noteID)
	c.notesMu.Unlock()

	if err := c.send(models.LeaveSession, models.NoteParams{NoteID: noteID}); !errors.Is(err, ErrNotConnected) {
		return err
	}
	return nil
}

func (c *Client) PushContentUpdate(noteID, content string) error {
	return c.send(models.PushContentUpdate, models.ContentParams{NoteID: noteID, Content: content})
}

func (c *Client) PushDrawingUpdate(noteID string, drawing json.RawMessage) error {
	return c.send(models.PushDrawingUpdate, models.DrawingParams{NoteID: noteID, Drawing: drawing})
}

func (c *Client) Typing(noteID, actorName string) error {
	return c.send(models.Typing, models.TypingParams{NoteID: noteID, ActorName: actorName})
}

func (c *Client) MarkNotificationRead(notificationID string) error {
	return c.send(models.MarkNotificationRead, models.ReadParams{NotificationID: notificationID})
}

// Close stops the reconnect loop and closes the connection. Events is closed
// once the loop has exited.
func (c *Client) Close() error {
	if err := c.transitionTo(StateClosing); err != nil {
		return err
	}
	c.cancel()

	c.connMu.Lock()
	if c.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.events)
	return c.transitionTo(StateClosed)
}
