// Package memstore implements store.Store in memory, optionally backed by
// a JSON snapshot file that is rewritten after every player mutation.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// Store is a map-backed store. The zero value is not usable; call New or Open.
type Store struct {
	mu      sync.RWMutex
	path    string                     // snapshot file; empty for memory only
	players map[string]json.RawMessage // id → document
	names   map[string]string          // name key → id
	catalog types.Catalog
}

// snapshot is the on-disk format. Catalog data is re-seeded at startup and
// never written.
type snapshot struct {
	Players map[string]json.RawMessage `json:"players"`
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		players: map[string]json.RawMessage{},
		names:   map[string]string{},
		catalog: types.Catalog{
			Locations: map[string]types.Location{},
			Items:     map[string]types.Item{},
			Enemies:   map[string]types.EnemyTemplate{},
			NPCs:      map[string]types.NPC{},
			Quests:    map[string]types.Quest{},
		},
	}
}

// Open returns a store persisted to path. An existing snapshot is loaded;
// otherwise an empty one is created.
func Open(path string) (*Store, error) {
	s := New()
	s.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.flush(); err != nil {
			return nil, fmt.Errorf("create snapshot: %w", err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	for id, raw := range snap.Players {
		p, err := store.DecodePlayer(raw)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", id, err)
		}
		s.players[id] = raw
		s.names[store.NameKey(p.Name)] = id
	}
	return s, nil
}

// flush writes the snapshot. Callers hold mu.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot{Players: s.players}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) CreatePlayer(_ context.Context, p *types.Player) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.NameKey(p.Name)
	if _, taken := s.names[key]; taken {
		return "", fmt.Errorf("%w: %s", store.ErrDuplicate, p.Name)
	}
	c := p.Clone()
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	raw, err := store.MarshalPlayer(c)
	if err != nil {
		return "", err
	}
	s.players[c.ID] = raw
	s.names[key] = c.ID
	if err := s.flush(); err != nil {
		delete(s.players, c.ID)
		delete(s.names, key)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return c.ID, nil
}

func (s *Store) GetPlayer(_ context.Context, id string) (*types.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	return store.DecodePlayer(raw)
}

func (s *Store) GetPlayerByName(ctx context.Context, name string) (*types.Player, error) {
	s.mu.RLock()
	id, ok := s.names[store.NameKey(name)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	return s.GetPlayer(ctx, id)
}

func (s *Store) ListPlayers(_ context.Context) ([]*types.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Player, 0, len(s.players))
	for _, raw := range s.players {
		p, err := store.DecodePlayer(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return store.NameKey(out[i].Name) < store.NameKey(out[j].Name) })
	return out, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, id string, fields map[string]any) error {
	_, err := s.ApplyPlayer(ctx, id, store.Mutation{Set: fields})
	return err
}

func (s *Store) IncrementPlayerField(ctx context.Context, id, path string, delta int) error {
	_, err := s.ApplyPlayer(ctx, id, store.Mutation{Inc: map[string]int{path: delta}})
	return err
}

func (s *Store) AppendPlayerChoice(ctx context.Context, id string, c types.Choice) error {
	_, err := s.ApplyPlayer(ctx, id, store.Mutation{Push: map[string][]any{"choices": {c}}})
	return err
}

func (s *Store) ApplyPlayer(_ context.Context, id string, m store.Mutation) (*types.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	if err := store.ApplyDocument(doc, m); err != nil {
		return nil, err
	}
	next, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode player: %w", err)
	}
	p, err := store.DecodePlayer(next)
	if err != nil {
		return nil, err
	}

	s.players[id] = next
	if err := s.flush(); err != nil {
		s.players[id] = raw
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return p, nil
}

func (s *Store) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.players[id]
	if !ok {
		return fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	p, err := store.DecodePlayer(raw)
	if err != nil {
		return err
	}
	delete(s.players, id)
	delete(s.names, store.NameKey(p.Name))
	if err := s.flush(); err != nil {
		s.players[id] = raw
		s.names[store.NameKey(p.Name)] = id
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetLocation(_ context.Context, id string) (*types.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.catalog.Locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, store.ErrNotFound)
	}
	return &loc, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*types.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.catalog.Items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	return &it, nil
}

func (s *Store) GetEnemy(_ context.Context, id string) (*types.EnemyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.catalog.Enemies[id]
	if !ok {
		return nil, fmt.Errorf("enemy %s: %w", id, store.ErrNotFound)
	}
	return &e, nil
}

func (s *Store) ListEnemies(_ context.Context) ([]types.EnemyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.EnemyTemplate, 0, len(s.catalog.Enemies))
	for _, e := range s.catalog.Enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetNPC(_ context.Context, id string) (*types.NPC, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.catalog.NPCs[id]
	if !ok {
		return nil, fmt.Errorf("npc %s: %w", id, store.ErrNotFound)
	}
	return &n, nil
}

func (s *Store) GetQuest(_ context.Context, id string) (*types.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.catalog.Quests[id]
	if !ok {
		return nil, fmt.Errorf("quest %s: %w", id, store.ErrNotFound)
	}
	return &q, nil
}

func (s *Store) QuestsAt(_ context.Context, location string, level int) ([]types.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Quest
	for _, q := range s.catalog.Quests {
		if q.Location == location && q.MinLevel <= level {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SeedCatalog(_ context.Context, c *types.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.World = c.World
	for id, v := range c.Locations {
		s.catalog.Locations[id] = v
	}
	for id, v := range c.Items {
		s.catalog.Items[id] = v
	}
	for id, v := range c.Enemies {
		s.catalog.Enemies[id] = v
	}
	for id, v := range c.NPCs {
		s.catalog.NPCs[id] = v
	}
	for id, v := range c.Quests {
		s.catalog.Quests[id] = v
	}
	return nil
}

// Close flushes the snapshot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

var _ store.Store = (*Store)(nil)
