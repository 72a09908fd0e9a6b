package services

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
)

// HubRoute identifies which hub endpoint a connection came in on.
type HubRoute string

const (
	NotesRoute         HubRoute = "/hubs/notes"
	NotificationsRoute HubRoute = "/hubs/notifications"
)

// DefaultSendQueueSize bounds each connection's outbound queue.
const DefaultSendQueueSize = 256

// Connection is one live hub connection of a principal. Its outbound queue is
// bounded; when full, the oldest queued frame is discarded to make room.
type Connection struct {
	ID          string
	UserID      uuid.UUID
	DisplayName string
	Route       HubRoute
	ConnectedAt time.Time

	mu     sync.Mutex
	groups map[string]struct{}
	closed bool

	sendMu     sync.Mutex
	send       chan []byte
	sendClosed bool
	dropped    atomic.Int64
	onDrop     func()
}

// NewConnection creates a handle with an outbound queue of queueSize frames.
func NewConnection(userID uuid.UUID, displayName string, route HubRoute, queueSize int) *Connection {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	if displayName == "" {
		displayName = models.AnonymousName
	}
	return &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DisplayName: displayName,
		Route:       route,
		ConnectedAt: time.Now().UTC(),
		groups:      make(map[string]struct{}),
		send:        make(chan []byte, queueSize),
	}
}

// Enqueue queues msg for the write pump without blocking. It returns false once
// the connection has been torn down.
func (c *Connection) Enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}
	for {
		select {
		case c.send <- msg:
			return true
		default:
		}
		select {
		case <-c.send:
			c.dropped.Add(1)
			if c.onDrop != nil {
				c.onDrop()
			}
		default:
		}
	}
}

// Messages is the outbound queue drained by the write pump. It is closed after
// the connection is removed from the registry.
func (c *Connection) Messages() <-chan []byte {
	return c.send
}

// Dropped is the number of frames discarded because the queue was full.
func (c *Connection) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// Groups returns the keys this connection is currently a member of, sorted.
func (c *Connection) Groups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.groups))
	for k := range c.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InGroup reports whether the connection is currently a member of key.
func (c *Connection) InGroup(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.groups[key]
	return ok
}

// IsClosed reports whether the connection has been disconnected.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// addGroup records membership; false if the connection is already closed.
// Caller holds the group's lock.
func (c *Connection) addGroup(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.groups[key] = struct{}{}
	return true
}

func (c *Connection) removeGroup(key string) {
	c.mu.Lock()
	delete(c.groups, key)
	c.mu.Unlock()
}

// markClosed flips the connection to closed and returns the groups it was in.
func (c *Connection) markClosed() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true
	keys := make([]string, 0, len(c.groups))
	for k := range c.groups {
		keys = append(keys, k)
	}
	return keys, true
}

// NoteGroupKey is the group of every connection collaborating on a note.
func NoteGroupKey(noteID string) string {
	return "note:" + strings.ToLower(noteID)
}

// UserGroupKey is the group of every device connection of a principal.
func UserGroupKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}
