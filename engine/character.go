package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

var (
	// ErrInvalidClass is returned for a class outside warrior, mage, rogue.
	ErrInvalidClass = errors.New("invalid class")
	// ErrNameTaken is returned when a character with the name exists.
	ErrNameTaken = errors.New("name already taken")
	// ErrInvalidName is returned for an empty or oversized name.
	ErrInvalidName = errors.New("invalid name")
)

const maxNameLen = 32

// CreatePlayer builds a new character from the class profile, stores it
// and returns a session at the start location.
func (e *Engine) CreatePlayer(ctx context.Context, name, class string) (*state.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cls, ok := types.ParseClass(class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClass, class)
	}

	start, err := e.Store.GetLocation(ctx, e.Rules.Start)
	if err != nil {
		return nil, fmt.Errorf("start location %s: %w", e.Rules.Start, err)
	}

	now := e.now()
	prof := types.ClassProfile(cls)
	p := &types.Player{
		Name:       name,
		Class:      cls,
		Level:      1,
		Health:     prof.MaxHealth,
		MaxHealth:  prof.MaxHealth,
		Mana:       prof.MaxMana,
		MaxMana:    prof.MaxMana,
		Stats:      prof.Stats,
		Gold:       e.Rules.StartingGold,
		Location:   start.ID,
		CreatedAt:  now,
		LastPlayed: now,
	}
	p.EnsureMaps()
	for id, qty := range e.Rules.StartingItems {
		p.Inventory[id] = qty
	}
	p.Visited[start.ID] = now

	id, err := e.Store.CreatePlayer(ctx, p)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create player %s: %w", name, err)
	}
	p.ID = id
	e.logger().Info("player created",
		zap.String("player", name),
		zap.String("id", id),
		zap.String("class", string(cls)))
	return state.New(ctx, p, start, e.Store)
}

// LoadSession resumes a character by name at its stored location, falling
// back to the start location when that location no longer exists.
func (e *Engine) LoadSession(ctx context.Context, name string) (*state.Session, error) {
	p, err := e.Store.GetPlayerByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", name, err)
	}

	loc, err := lookup(e.Store.GetLocation(ctx, p.Location))
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", p.Location, err)
	}
	var m store.Mutation
	m.SetField("last_played", e.now())
	if loc == nil {
		e.logger().Warn("stored location missing, using start",
			zap.String("player", p.Name),
			zap.String("location", p.Location))
		loc, err = e.Store.GetLocation(ctx, e.Rules.Start)
		if err != nil {
			return nil, fmt.Errorf("start location %s: %w", e.Rules.Start, err)
		}
		m.SetField("location", loc.ID)
	}

	p, err = e.Store.ApplyPlayer(ctx, p.ID, m)
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", name, err)
	}
	e.logger().Info("player loaded",
		zap.String("player", p.Name),
		zap.String("location", loc.ID))
	return state.New(ctx, p, loc, e.Store)
}

// DeletePlayer removes a character by name.
func (e *Engine) DeletePlayer(ctx context.Context, name string) error {
	p, err := e.Store.GetPlayerByName(ctx, name)
	if err != nil {
		return fmt.Errorf("delete player %s: %w", name, err)
	}
	if err := e.Store.DeletePlayer(ctx, p.ID); err != nil {
		return fmt.Errorf("delete player %s: %w", name, err)
	}
	e.logger().Info("player deleted", zap.String("player", p.Name))
	return nil
}

// ListPlayers returns every stored character.
func (e *Engine) ListPlayers(ctx context.Context) ([]*types.Player, error) {
	return e.Store.ListPlayers(ctx)
}
