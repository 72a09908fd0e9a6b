package services

import (
	"sync"

	"notewiz-notes/notewiz/models"

	"github.com/rs/zerolog/log"
)

// group is one key's member set. A group that reached zero members is marked
// deleted and unlinked from the registry; joiners that raced with the delete
// retry against a fresh group.
type group struct {
	mu      sync.Mutex
	members map[string]*Connection
	deleted bool
}

// GroupRegistry maps group keys to their members. The registry lock guards only
// the key map; each group serializes its own mutations, so different keys never
// contend. Lock order is group then connection.
type GroupRegistry struct {
	mu      sync.RWMutex
	groups  map[string]*group
	metrics *HubMetrics
}

func NewGroupRegistry(metrics *HubMetrics) *GroupRegistry {
	return &GroupRegistry{
		groups:  make(map[string]*group),
		metrics: metrics,
	}
}

func (r *GroupRegistry) lookup(key string) *group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups[key]
}

func (r *GroupRegistry) lookupOrCreate(key string) *group {
	if g := r.lookup(key); g != nil {
		return g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[key]; ok {
		return g
	}
	g := &group{members: make(map[string]*Connection)}
	r.groups[key] = g
	r.metrics.groupCreated()
	return g
}

// Join adds conn to key, creating the group if needed. Joining twice is a
// no-op. It returns false when conn has already disconnected.
func (r *GroupRegistry) Join(key string, conn *Connection) bool {
	for {
		g := r.lookupOrCreate(key)
		g.mu.Lock()
		if g.deleted {
			g.mu.Unlock()
			continue
		}
		if !conn.addGroup(key) {
			empty := len(g.members) == 0
			g.mu.Unlock()
			if empty {
				r.deleteIfEmpty(key, g)
			}
			return false
		}
		g.members[conn.ID] = conn
		g.mu.Unlock()
		return true
	}
}

// Leave removes conn from key and drops the group once empty. Leaving a group
// that does not exist, or one conn is not in, does nothing.
func (r *GroupRegistry) Leave(key string, conn *Connection) {
	g := r.lookup(key)
	if g == nil {
		return
	}
	g.mu.Lock()
	if _, ok := g.members[conn.ID]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.members, conn.ID)
	conn.removeGroup(key)
	empty := len(g.members) == 0
	g.mu.Unlock()

	if empty {
		r.deleteIfEmpty(key, g)
	}
}

// deleteIfEmpty unlinks g if it is still the group for key and still empty.
func (r *GroupRegistry) deleteIfEmpty(key string, g *group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleted || len(g.members) > 0 || r.groups[key] != g {
		return
	}
	g.deleted = true
	delete(r.groups, key)
	r.metrics.groupDeleted()
}

// Broadcast queues msg for every member of key except exclude. Delivery is
// best effort: closed connections are skipped. The return value is the number
// of queued deliveries and is informational only.
func (r *GroupRegistry) Broadcast(key string, msg []byte, exclude *Connection) int {
	g := r.lookup(key)
	if g == nil {
		return 0
	}

	g.mu.Lock()
	targets := make([]*Connection, 0, len(g.members))
	for id, c := range g.members {
		if exclude != nil && id == exclude.ID {
			continue
		}
		targets = append(targets, c)
	}
	g.mu.Unlock()

	delivered := 0
	for _, c := range targets {
		if c.Enqueue(msg) {
			delivered++
		}
	}
	log.Debug().Str("group", key).Int("delivered", delivered).Msg("Broadcast")
	return delivered
}

// BroadcastEvent encodes event for key and broadcasts it, counting it by kind.
func (r *GroupRegistry) BroadcastEvent(key string, event *models.ServerEvent, exclude *Connection) int {
	data, err := event.WithGroup(key).ToJSON()
	if err != nil {
		log.Error().Err(err).Str("group", key).Str("event", string(event.Event)).Msg("Failed to encode server event")
		return 0
	}
	r.metrics.broadcast(string(event.Event))
	return r.Broadcast(key, data, exclude)
}

// RemoveConnection takes conn out of every group it joined. New joins for conn
// are refused from the moment this is called; when it returns, no group lists
// conn. Calling it again does nothing.
func (r *GroupRegistry) RemoveConnection(conn *Connection) {
	keys, first := conn.markClosed()
	if !first {
		return
	}
	for _, key := range keys {
		r.Leave(key, conn)
	}
}

// Members returns the connection IDs currently in key.
func (r *GroupRegistry) Members(key string) []string {
	g := r.lookup(key)
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	return ids
}

func (r *GroupRegistry) HasGroup(key string) bool {
	return r.lookup(key) != nil
}

func (r *GroupRegistry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
