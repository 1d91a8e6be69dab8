package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/types"
)

// Damage is the player's attack damage and the failed-flee hit:
// max(1, attack - defense/2).
func Damage(attack, defense int) int {
	return max(1, attack-defense/2)
}

// CounterDamage is an enemy's counter-attack against the player's full
// defense plus any defend bonus: max(1, attack - (defense + bonus)).
func CounterDamage(attack, defense, bonus int) int {
	return max(1, attack-(defense+bonus))
}

type roundAction int

const (
	roundAttack roundAction = iota
	roundDefend
	roundUse
)

// attackTarget starts a fight with an enemy that roams the current
// location and resolves the opening attack.
func (e *Engine) attackTarget(ctx context.Context, s *state.Session, arg string) (types.Result, error) {
	var target *types.EnemyTemplate
	for _, id := range s.NearbyEnemies {
		t, err := lookup(e.Store.GetEnemy(ctx, id))
		if err != nil {
			return types.Result{}, fmt.Errorf("enemy %s: %w", id, err)
		}
		if t == nil {
			continue
		}
		match, exact := matchName(arg, t.ID, t.Name)
		if exact {
			target = t
			break
		}
		if match && target == nil {
			target = t
		}
	}
	if target == nil {
		return say(fmt.Sprintf("You prepare to fight %s, but they're not here.", arg)), nil
	}
	enc := state.Encounter{Enemy: state.NewEnemy(*target)}
	return e.resolveRound(ctx, s, enc, roundAttack, nil,
		fmt.Sprintf("You attack the %s!", target.Name))
}

// combatRound resolves one round of the live encounter.
func (e *Engine) combatRound(ctx context.Context, s *state.Session, act roundAction, it *types.Item) (types.Result, error) {
	return e.resolveRound(ctx, s, *s.Combat, act, it)
}

// resolveRound plays the player's action, then the enemy's counter-attack
// unless the enemy fell. enc is a copy; the session sees the outcome only
// after it has been stored.
func (e *Engine) resolveRound(ctx context.Context, s *state.Session, enc state.Encounter, act roundAction, it *types.Item, lead ...string) (types.Result, error) {
	c := e.begin(s)
	enemy := &enc.Enemy
	enc.Round++
	enc.Log = append([]string(nil), enc.Log...)
	out := append([]string(nil), lead...)

	bonus := 0
	switch act {
	case roundAttack:
		dmg := Damage(c.p.Stats.Attack, enemy.Defense)
		enemy.Health = max(0, enemy.Health-dmg)
		out = append(out, fmt.Sprintf("You hit the %s for %d damage.", enemy.Name, dmg))
	case roundDefend:
		bonus = c.p.Stats.Defense / 2
		out = append(out, fmt.Sprintf("You raise your guard. (+%d defense this round)", bonus))
	case roundUse:
		lines, err := e.applyItem(ctx, c, it)
		if err != nil {
			return types.Result{}, err
		}
		out = append(out, lines...)
	}
	enc.Log = append(enc.Log, out...)

	if !enemy.Alive() {
		won, err := e.victory(ctx, c, &enemy.EnemyTemplate)
		if err != nil {
			return types.Result{}, err
		}
		out = append(out, won.lines...)
		c.then(func(s *state.Session) { s.EndCombat() })
		if err := e.commit(ctx, s, c); err != nil {
			return types.Result{}, err
		}
		return types.Result{Output: e.narrateVictory(ctx, s, &enemy.EnemyTemplate, out, won)}, nil
	}

	hit, died := e.counterAttack(c, enemy, bonus)
	out = append(out, hit...)
	enc.Log = append(enc.Log, hit...)
	if died {
		lines, err := e.respawn(ctx, c)
		if err != nil {
			return types.Result{}, err
		}
		out = append(out, lines...)
	} else {
		out = append(out, fmt.Sprintf("The %s has %d/%d health. You have %d/%d health.",
			enemy.Name, enemy.Health, enemy.MaxHealth, c.p.Health, c.p.MaxHealth))
		final := enc
		c.then(func(s *state.Session) { s.Combat = &final })
	}
	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}
	if !died {
		out = e.narrateRound(ctx, s, &enemy.EnemyTemplate, out)
	}
	return types.Result{Output: out}, nil
}

// counterAttack resolves the enemy's turn: an evasion check, then damage
// against defense plus bonus.
func (e *Engine) counterAttack(c *change, enemy *state.EnemyInstance, bonus int) (lines []string, died bool) {
	if e.RNG.Percent() < float64(c.p.Stats.Evasion) {
		return []string{fmt.Sprintf("You dodge the %s's attack!", enemy.Name)}, false
	}
	dmg := CounterDamage(enemy.Attack, c.p.Stats.Defense, bonus)
	c.setHealth(c.p.Health - dmg)
	return []string{fmt.Sprintf("The %s hits you for %d damage.", enemy.Name, dmg)}, c.p.Health <= 0
}

// flee tries to escape. On failure the enemy gets a free hit that ignores
// evasion.
func (e *Engine) flee(ctx context.Context, s *state.Session) (types.Result, error) {
	c := e.begin(s)
	enc := *s.Combat
	enemy := enc.Enemy
	enc.Round++

	if e.RNG.Chance(e.Rules.FleeChance) {
		c.then(func(s *state.Session) { s.EndCombat() })
		if err := e.commit(ctx, s, c); err != nil {
			return types.Result{}, err
		}
		return say(fmt.Sprintf("You escape from the %s!", enemy.Name)), nil
	}

	dmg := Damage(enemy.Attack, c.p.Stats.Defense)
	c.setHealth(c.p.Health - dmg)
	out := []string{
		"You fail to escape!",
		fmt.Sprintf("The %s hits you for %d damage as you turn to run.", enemy.Name, dmg),
	}
	if c.p.Health <= 0 {
		lines, err := e.respawn(ctx, c)
		if err != nil {
			return types.Result{}, err
		}
		out = append(out, lines...)
	} else {
		out = append(out, fmt.Sprintf("You have %d/%d health.", c.p.Health, c.p.MaxHealth))
		enc.Log = append(append([]string(nil), enc.Log...), out...)
		final := enc
		c.then(func(s *state.Session) { s.Combat = &final })
	}
	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}
	return types.Result{Output: out}, nil
}

// spoils is what a victory earned.
type spoils struct {
	lines []string
	gold  int
	drops []*types.Item
}

// victory grants experience, gold and loot, advances defeat objectives and
// checks for a level-up.
func (e *Engine) victory(ctx context.Context, c *change, t *types.EnemyTemplate) (spoils, error) {
	gold := e.RNG.Between(t.Gold.Min, t.Gold.Max)
	c.addXP(t.XPReward)
	c.addGold(gold)
	out := []string{
		fmt.Sprintf("You defeated the %s!", t.Name),
		fmt.Sprintf("You gain %d XP and %d gold.", t.XPReward, gold),
	}

	ids := make([]string, 0, len(t.Loot))
	for id := range t.Loot {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var drops []*types.Item
	for _, id := range ids {
		if !e.RNG.Chance(t.Loot[id]) {
			continue
		}
		it, err := lookup(e.Store.GetItem(ctx, id))
		if err != nil {
			return spoils{}, fmt.Errorf("item %s: %w", id, err)
		}
		if it == nil {
			continue
		}
		c.addItem(id, 1)
		drops = append(drops, it)
		out = append(out, fmt.Sprintf("You found: %s", it.Name))
	}

	if err := e.progressObjectives(ctx, c, types.ObjectiveDefeat, t.ID); err != nil {
		return spoils{}, err
	}
	out = append(out, e.levelUp(c)...)
	return spoils{lines: out, gold: gold, drops: drops}, nil
}

// levelUp raises the player one level when experience has reached the
// threshold for the current level. Experience is cumulative and a single
// award never grants more than one level.
func (e *Engine) levelUp(c *change) []string {
	p := c.p
	if p.Experience < p.Level*e.Rules.XPPerLevel {
		return nil
	}
	maxHealth := p.MaxHealth + e.Rules.LevelHealth
	c.setLevel(p.Level+1, maxHealth)
	st := p.Stats
	st.Attack += e.Rules.LevelAttack
	st.Defense += e.Rules.LevelDefense
	c.setStats(st)
	c.setHealth(maxHealth)
	return []string{
		fmt.Sprintf("Level up! You are now level %d.", p.Level),
		fmt.Sprintf("Max health +%d, attack +%d, defense +%d. You are fully healed.",
			e.Rules.LevelHealth, e.Rules.LevelAttack, e.Rules.LevelDefense),
	}
}

// respawn handles player death: the fight ends, the player wakes at the
// start location with half health and loses a share of their gold.
func (e *Engine) respawn(ctx context.Context, c *change) ([]string, error) {
	start, err := e.Store.GetLocation(ctx, e.Rules.Start)
	if err != nil {
		return nil, fmt.Errorf("respawn location %s: %w", e.Rules.Start, err)
	}
	lost := 0
	if e.Rules.DeathGoldPenalty > 0 {
		lost = c.p.Gold / e.Rules.DeathGoldPenalty
	}
	c.setHealth(c.p.MaxHealth / 2)
	c.addGold(-lost)
	c.moveTo(start, e.now())
	c.then(func(s *state.Session) { s.EndCombat() })
	return []string{
		"You have been defeated!",
		fmt.Sprintf("You wake up in %s with %d/%d health. You lost %d gold.",
			start.Name, c.p.Health, c.p.MaxHealth, lost),
	}, nil
}

func (e *Engine) narrateRound(ctx context.Context, s *state.Session, t *types.EnemyTemplate, out []string) []string {
	sc, err := e.scene(ctx, s)
	if err != nil {
		return out
	}
	if text, ok := e.Narrator.DescribeCombat(ctx, sc, t, strings.Join(out, " ")); ok {
		out = append(out, "", text)
	}
	return out
}

func (e *Engine) narrateVictory(ctx context.Context, s *state.Session, t *types.EnemyTemplate, out []string, won spoils) []string {
	sc, err := e.scene(ctx, s)
	if err != nil {
		return out
	}
	if text, ok := e.Narrator.DescribeVictory(ctx, sc, t, t.XPReward, won.gold); ok {
		out = append(out, "", text)
	}
	for _, it := range won.drops {
		if text, ok := e.Narrator.DescribeItemDiscovery(ctx, it, "on the defeated "+t.Name); ok {
			out = append(out, text)
		}
	}
	return out
}
