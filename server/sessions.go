package server

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/wayfarer/engine/state"
)

// entry is one open session. mu serializes commands so a player's state
// is mutated by one request at a time.
type entry struct {
	id     string
	player string

	mu      sync.Mutex
	session *state.Session
	closed  bool
}

// sessions tracks open sessions by id, with at most one per player.
type sessions struct {
	mu       sync.Mutex
	byID     map[string]*entry
	byPlayer map[string]string
}

func newSessions() *sessions {
	return &sessions{
		byID:     make(map[string]*entry),
		byPlayer: make(map[string]string),
	}
}

func playerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// open registers s and returns its entry. A player who already has an
// open session gets that session back; created is false in that case.
func (m *sessions) open(s *state.Session) (e *entry, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := playerKey(s.Player.Name)
	if id, ok := m.byPlayer[key]; ok {
		return m.byID[id], false
	}
	e = &entry{id: uuid.New().String(), player: key, session: s}
	m.byID[e.id] = e
	m.byPlayer[key] = e.id
	return e, true
}

// lookupPlayer returns the open session for a player, if any.
func (m *sessions) lookupPlayer(name string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPlayer[playerKey(name)]
	if !ok {
		return nil, false
	}
	return m.byID[id], true
}

func (m *sessions) get(id string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	return e, ok
}

// close forgets the session. Commands already waiting on the entry see
// closed and stop.
func (m *sessions) close(id string) bool {
	m.mu.Lock()
	e, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		if m.byPlayer[e.player] == id {
			delete(m.byPlayer, e.player)
		}
	}
	m.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
	}
	return ok
}

func (m *sessions) closePlayer(name string) {
	if e, ok := m.lookupPlayer(name); ok {
		m.close(e.id)
	}
}

func (m *sessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
