// Package store defines the persistence gateway used by the engine: player
// documents with partial, atomic updates plus read-only catalog lookups.
package store

import (
	"context"
	"errors"

	"github.com/nathoo/wayfarer/types"
)

var (
	// ErrNotFound is returned for any lookup on a missing identifier.
	ErrNotFound = errors.New("not found")
	// ErrInvalidField is returned for malformed or protected field paths.
	ErrInvalidField = errors.New("invalid field path")
	// ErrInvalidDocument is returned when a mutation would leave a player
	// document that fails validation.
	ErrInvalidDocument = errors.New("invalid player document")
	// ErrDuplicate is returned when a player name is already taken.
	ErrDuplicate = errors.New("duplicate player name")
)

// PlayerStore persists player documents.
type PlayerStore interface {
	// CreatePlayer stores a new player and returns its generated ID.
	CreatePlayer(ctx context.Context, p *types.Player) (string, error)
	GetPlayer(ctx context.Context, id string) (*types.Player, error)
	// GetPlayerByName matches names case-insensitively.
	GetPlayerByName(ctx context.Context, name string) (*types.Player, error)
	ListPlayers(ctx context.Context) ([]*types.Player, error)
	// UpdatePlayer merges fields (dotted paths) into the stored document.
	UpdatePlayer(ctx context.Context, id string, fields map[string]any) error
	IncrementPlayerField(ctx context.Context, id, path string, delta int) error
	AppendPlayerChoice(ctx context.Context, id string, c types.Choice) error
	// ApplyPlayer applies every part of m in one atomic write and returns
	// the stored result.
	ApplyPlayer(ctx context.Context, id string, m Mutation) (*types.Player, error)
	DeletePlayer(ctx context.Context, id string) error
}

// CatalogStore serves fixture data.
type CatalogStore interface {
	GetLocation(ctx context.Context, id string) (*types.Location, error)
	GetItem(ctx context.Context, id string) (*types.Item, error)
	GetEnemy(ctx context.Context, id string) (*types.EnemyTemplate, error)
	ListEnemies(ctx context.Context) ([]types.EnemyTemplate, error)
	GetNPC(ctx context.Context, id string) (*types.NPC, error)
	GetQuest(ctx context.Context, id string) (*types.Quest, error)
	// QuestsAt returns quests at location whose minimum level is at most
	// level, ordered by ID.
	QuestsAt(ctx context.Context, location string, level int) ([]types.Quest, error)
	// SeedCatalog upserts every catalog entity.
	SeedCatalog(ctx context.Context, c *types.Catalog) error
}

// Store is the full persistence gateway.
type Store interface {
	PlayerStore
	CatalogStore
	Close() error
}

// Collection names shared by the backends.
const (
	Players   = "players"
	Locations = "locations"
	Items     = "items"
	Enemies   = "enemies"
	NPCs      = "npcs"
	Quests    = "quests"
)
