// Package state holds the per-session game state: the active player and
// location snapshots, their derived lists, and the live combat encounter.
package state

import (
	"context"
	"fmt"

	"github.com/nathoo/wayfarer/types"
)

// QuestSource answers the derived available-quests query.
type QuestSource interface {
	QuestsAt(ctx context.Context, location string, level int) ([]types.Quest, error)
}

// Session is one player's in-memory game state. A Session is not safe for
// concurrent use; callers process one command at a time per session.
type Session struct {
	Player   *types.Player
	Location *types.Location

	// Derived from Player and Location by Refresh.
	AvailableQuests []types.Quest
	NearbyEnemies   []string

	// LastCommand is the normalized text of the previous command.
	LastCommand string

	// Combat is the live encounter, nil when idle.
	Combat *Encounter
}

// New builds a session and derives its lists.
func New(ctx context.Context, p *types.Player, loc *types.Location, quests QuestSource) (*Session, error) {
	s := &Session{Player: p, Location: loc}
	if err := s.Refresh(ctx, quests); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh recomputes every derived field from Player and Location.
func (s *Session) Refresh(ctx context.Context, quests QuestSource) error {
	s.NearbyEnemies = nil
	s.AvailableQuests = nil
	if s.Location == nil || s.Player == nil {
		return nil
	}
	s.NearbyEnemies = append([]string(nil), s.Location.Enemies...)
	qs, err := quests.QuestsAt(ctx, s.Location.ID, s.Player.Level)
	if err != nil {
		return fmt.Errorf("available quests: %w", err)
	}
	s.AvailableQuests = qs
	return nil
}

// InCombat reports whether an encounter is active.
func (s *Session) InCombat() bool {
	return s.Combat != nil
}

// StartCombat begins an encounter with a fresh instance of the template.
func (s *Session) StartCombat(t types.EnemyTemplate) *Encounter {
	s.Combat = &Encounter{Enemy: NewEnemy(t)}
	return s.Combat
}

// EndCombat returns the session to idle.
func (s *Session) EndCombat() {
	s.Combat = nil
}

// EnemyInstance is a single combatant: a copy of its template with its own
// current health.
type EnemyInstance struct {
	types.EnemyTemplate
	Health int
}

// NewEnemy copies the template at full health.
func NewEnemy(t types.EnemyTemplate) EnemyInstance {
	return EnemyInstance{EnemyTemplate: t, Health: t.MaxHealth}
}

// Alive reports whether the enemy can still fight.
func (e EnemyInstance) Alive() bool {
	return e.Health > 0
}

// Encounter is transient combat state; it is never persisted.
type Encounter struct {
	Enemy EnemyInstance
	Round int
	Log   []string
}
