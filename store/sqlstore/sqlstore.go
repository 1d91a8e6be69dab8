// Package sqlstore implements store.Store as a JSON document table on top
// of database/sql, with SQLite and PostgreSQL dialects. Partial updates and
// increments run as a single UPDATE built from the database's JSON
// functions, inside a transaction that validates the resulting document.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// Store is a SQL-backed document store.
type Store struct {
	db *sql.DB
	d  *dialect
}

// Open connects with driver ("sqlite" or "postgres") and dsn, then
// creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if d.driver == "sqlite" {
		// One connection serializes writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, d: d}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) q(query string) string { return s.d.rebind(query) }

func (s *Store) CreatePlayer(ctx context.Context, p *types.Player) (string, error) {
	c := p.Clone()
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	raw, err := store.MarshalPlayer(c)
	if err != nil {
		return "", err
	}
	key := store.NameKey(c.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT 1 FROM documents WHERE collection = ? AND name_key = ?`),
		store.Players, key).Scan(&one)
	switch {
	case err == nil:
		return "", fmt.Errorf("%w: %s", store.ErrDuplicate, c.Name)
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("check name: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO documents (collection, id, name_key, doc) VALUES (?, ?, ?, ?)`),
		store.Players, c.ID, key, string(raw)); err != nil {
		return "", fmt.Errorf("insert player: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return c.ID, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*types.Player, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT doc FROM documents WHERE collection = ? AND id = ?`),
		store.Players, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	return store.DecodePlayer(raw)
}

func (s *Store) GetPlayerByName(ctx context.Context, name string) (*types.Player, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT doc FROM documents WHERE collection = ? AND name_key = ?`),
		store.Players, store.NameKey(name)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	return store.DecodePlayer(raw)
}

func (s *Store) ListPlayers(ctx context.Context) ([]*types.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT doc FROM documents WHERE collection = ? ORDER BY name_key`), store.Players)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []*types.Player
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		p, err := store.DecodePlayer(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
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

func (s *Store) ApplyPlayer(ctx context.Context, id string, m store.Mutation) (*types.Player, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Empty() {
		return s.GetPlayer(ctx, id)
	}
	expr, args, err := s.d.updateExpr(m)
	if err != nil {
		return nil, err
	}
	args = append(args, store.Players, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		s.q(`UPDATE documents SET doc = `+expr+` WHERE collection = ? AND id = ? RETURNING doc`),
		args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	p, err := store.DecodePlayer(raw)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM documents WHERE collection = ? AND id = ?`), store.Players, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("player %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// getDoc loads and decodes one catalog document.
func getDoc[T any](ctx context.Context, s *Store, collection, id string) (*T, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT doc FROM documents WHERE collection = ? AND id = ?`),
		collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return &v, nil
}

// listDocs runs a query returning doc columns and decodes each row.
func listDocs[T any](ctx context.Context, s *Store, query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetLocation(ctx context.Context, id string) (*types.Location, error) {
	return getDoc[types.Location](ctx, s, store.Locations, id)
}

func (s *Store) GetItem(ctx context.Context, id string) (*types.Item, error) {
	return getDoc[types.Item](ctx, s, store.Items, id)
}

func (s *Store) GetEnemy(ctx context.Context, id string) (*types.EnemyTemplate, error) {
	return getDoc[types.EnemyTemplate](ctx, s, store.Enemies, id)
}

func (s *Store) ListEnemies(ctx context.Context) ([]types.EnemyTemplate, error) {
	out, err := listDocs[types.EnemyTemplate](ctx, s,
		`SELECT doc FROM documents WHERE collection = ? ORDER BY id`, store.Enemies)
	if err != nil {
		return nil, fmt.Errorf("list enemies: %w", err)
	}
	return out, nil
}

func (s *Store) GetNPC(ctx context.Context, id string) (*types.NPC, error) {
	return getDoc[types.NPC](ctx, s, store.NPCs, id)
}

func (s *Store) GetQuest(ctx context.Context, id string) (*types.Quest, error) {
	return getDoc[types.Quest](ctx, s, store.Quests, id)
}

func (s *Store) QuestsAt(ctx context.Context, location string, level int) ([]types.Quest, error) {
	out, err := listDocs[types.Quest](ctx, s,
		`SELECT doc FROM documents WHERE collection = ? AND `+s.d.questFilter+` ORDER BY id`,
		store.Quests, location, level)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	return out, nil
}

func (s *Store) SeedCatalog(ctx context.Context, c *types.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	upsert := s.q(`INSERT INTO documents (collection, id, name_key, doc) VALUES (?, ?, '', ?)
		ON CONFLICT (collection, id) DO UPDATE SET doc = excluded.doc`)
	put := func(collection, id string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", collection, id, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, collection, id, string(raw)); err != nil {
			return fmt.Errorf("seed %s %s: %w", collection, id, err)
		}
		return nil
	}
	for id, v := range c.Locations {
		if err := put(store.Locations, id, v); err != nil {
			return err
		}
	}
	for id, v := range c.Items {
		if err := put(store.Items, id, v); err != nil {
			return err
		}
	}
	for id, v := range c.Enemies {
		if err := put(store.Enemies, id, v); err != nil {
			return err
		}
	}
	for id, v := range c.NPCs {
		if err := put(store.NPCs, id, v); err != nil {
			return err
		}
	}
	for id, v := range c.Quests {
		if err := put(store.Quests, id, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
