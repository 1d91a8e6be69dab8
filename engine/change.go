package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// change is a pending edit to the session's player. Edits go to a clone
// and to the matching store mutation; nothing reaches the session until
// commit has persisted the mutation.
type change struct {
	p   *types.Player
	m   store.Mutation
	loc *types.Location // destination, nil when the player stays put

	fresh map[string]bool // quests first set by this change
	after []func(s *state.Session)
}

func (e *Engine) begin(s *state.Session) *change {
	return &change{p: s.Player.Clone(), fresh: map[string]bool{}}
}

// then queues a session edit to run once the change is stored.
func (c *change) then(f func(s *state.Session)) {
	c.after = append(c.after, f)
}

func (c *change) setHealth(h int) {
	if h < 0 {
		h = 0
	}
	if h > c.p.MaxHealth {
		h = c.p.MaxHealth
	}
	c.p.Health = h
	c.m.SetField("health", h)
}

func (c *change) setMana(v int) {
	if v < 0 {
		v = 0
	}
	if v > c.p.MaxMana {
		v = c.p.MaxMana
	}
	c.p.Mana = v
	c.m.SetField("mana", v)
}

func (c *change) addGold(delta int) {
	if c.p.Gold+delta < 0 {
		delta = -c.p.Gold
	}
	if delta == 0 {
		return
	}
	c.p.Gold += delta
	c.m.IncField("gold", delta)
}

func (c *change) addXP(delta int) {
	if delta <= 0 {
		return
	}
	c.p.Experience += delta
	c.m.IncField("experience", delta)
}

func (c *change) addItem(id string, qty int) {
	if c.p.Inventory[id]+qty < 0 {
		qty = -c.p.Inventory[id]
	}
	if qty == 0 {
		return
	}
	c.p.Inventory[id] += qty
	c.m.IncField("inventory."+id, qty)
}

func (c *change) setStats(st types.Stats) {
	if st.Attack != c.p.Stats.Attack {
		c.m.SetField("stats.attack", st.Attack)
	}
	if st.Defense != c.p.Stats.Defense {
		c.m.SetField("stats.defense", st.Defense)
	}
	c.p.Stats = st
}

func (c *change) setLevel(level, maxHealth int) {
	c.p.Level = level
	c.p.MaxHealth = maxHealth
	c.m.SetField("level", level)
	c.m.SetField("max_health", maxHealth)
}

func (c *change) equip(slot, item string) {
	c.p.Equipped[slot] = item
	c.m.SetField("equipped."+slot, item)
}

func (c *change) moveTo(loc *types.Location, at time.Time) {
	c.loc = loc
	c.p.Location = loc.ID
	c.m.SetField("location", loc.ID)
	c.visit(loc.ID, at)
}

func (c *change) visit(id string, at time.Time) {
	c.p.Visited[id] = at
	c.m.SetField("visited_locations."+id, at)
}

func (c *change) record(ch types.Choice) {
	c.p.Choices = append(c.p.Choices, ch)
	c.m.PushField("choices", ch)
}

func (c *change) startQuest(id string) {
	c.p.Quests[id] = types.QuestProgress{Status: types.QuestActive, Progress: map[string]int{}}
	c.fresh[id] = true
	c.m.SetField("quests."+id, c.p.Quests[id])
}

func (c *change) advanceQuest(id, objective string, n int) {
	qp := c.p.Quests[id]
	if qp.Progress == nil {
		qp.Progress = map[string]int{}
	}
	qp.Progress[objective] += n
	c.p.Quests[id] = qp
	if c.fresh[id] {
		c.m.SetField("quests."+id, qp)
		return
	}
	c.m.IncField("quests."+id+".progress."+objective, n)
}

func (c *change) completeQuest(id string) {
	qp := c.p.Quests[id]
	qp.Status = types.QuestCompleted
	c.p.Quests[id] = qp
	if c.fresh[id] {
		c.m.SetField("quests."+id, qp)
		return
	}
	c.m.SetField("quests."+id+".status", qp.Status)
}

// commit persists c and, only on success, installs the stored player in
// the session, runs the queued edits and recomputes derived state.
func (e *Engine) commit(ctx context.Context, s *state.Session, c *change) error {
	if !c.m.Empty() {
		stored, err := e.Store.ApplyPlayer(ctx, s.Player.ID, c.m)
		if err != nil {
			e.logger().Error("persist player",
				zap.String("player", s.Player.Name),
				zap.String("location", s.Player.Location),
				zap.Error(err))
			return fmt.Errorf("save %s: %w", s.Player.Name, err)
		}
		s.Player = stored
	}
	if c.loc != nil {
		s.Location = c.loc
	}
	for _, f := range c.after {
		f(s)
	}
	return s.Refresh(ctx, e.Store)
}
