package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/dialogue"
	"github.com/nathoo/wayfarer/engine/parser"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/types"
)

const helpText = `Available Commands:
- go/move/travel [location]: Move to a new location (or just type a direction)
- look/examine/inspect [target]: Look around or examine something specific
- inventory/items/i: Check your inventory
- status/stats/character: Check your character status
- quest/quests/journal: Check your quests
- talk/speak [npc]: Talk to an NPC
- use/consume [item]: Use or equip an item from your inventory
- attack/fight [target]: Attack a target
- defend/block: Brace for the next blow during a fight
- flee/run: Try to escape from a fight
- map/routes/where: Show where you can go from here
- help/commands: Show this help message
- quit/exit/menu: Leave the game

You can also try other actions not listed here, and the game will respond accordingly.`

// connections returns the catalog locations connected to loc, skipping
// dangling ids.
func (e *Engine) connections(ctx context.Context, loc *types.Location) ([]*types.Location, error) {
	var out []*types.Location
	for _, id := range loc.Connections {
		l, err := lookup(e.Store.GetLocation(ctx, id))
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", id, err)
		}
		if l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

// scene gathers the facts the narrator may mention.
func (e *Engine) scene(ctx context.Context, s *state.Session) (narrative.Scene, error) {
	sc := narrative.Scene{Player: s.Player, Location: s.Location}
	_, sc.Visited = s.Player.Visited[s.Location.ID]

	for _, id := range s.Location.NPCs {
		npc, err := lookup(e.Store.GetNPC(ctx, id))
		if err != nil {
			return sc, fmt.Errorf("npc %s: %w", id, err)
		}
		if npc != nil {
			sc.NPCs = append(sc.NPCs, npc.Name)
		}
	}
	for _, id := range s.NearbyEnemies {
		t, err := lookup(e.Store.GetEnemy(ctx, id))
		if err != nil {
			return sc, fmt.Errorf("enemy %s: %w", id, err)
		}
		if t != nil {
			sc.Enemies = append(sc.Enemies, t.Name)
		}
	}
	conns, err := e.connections(ctx, s.Location)
	if err != nil {
		return sc, err
	}
	for _, l := range conns {
		sc.Connections = append(sc.Connections, l.Name)
	}
	for _, id := range heldItems(s.Player) {
		name, err := e.itemName(ctx, id)
		if err != nil {
			return sc, err
		}
		sc.Inventory = append(sc.Inventory, name)
	}
	return sc, nil
}

// heldItems returns the ids of items the player holds, sorted.
func heldItems(p *types.Player) []string {
	var ids []string
	for id, qty := range p.Inventory {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// matchName reports whether arg names something with this id and display
// name. exact is false for a partial name match.
func matchName(arg, id, name string) (match, exact bool) {
	arg = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(arg)), "the ")
	name = strings.ToLower(name)
	switch {
	case arg == "":
		return false, false
	case arg == id || arg == name:
		return true, true
	case strings.Contains(name, arg):
		return true, false
	}
	return false, false
}

// --- move ---

func (e *Engine) move(ctx context.Context, s *state.Session, arg string) (types.Result, error) {
	dest, err := e.destination(ctx, s.Location, arg)
	if err != nil {
		return types.Result{}, err
	}
	if dest == nil {
		return say(fmt.Sprintf("Cannot find a path to %s from your current location.", arg)), nil
	}

	enemy, err := e.rollEncounter(ctx, dest)
	if err != nil {
		return types.Result{}, err
	}

	c := e.begin(s)
	c.moveTo(dest, e.now())
	if enemy != nil {
		t := *enemy
		c.then(func(s *state.Session) { s.StartCombat(t) })
	}
	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}

	res := say(fmt.Sprintf("You travel to %s.", dest.Name))
	if enemy == nil {
		return res, nil
	}
	res.Output = append(res.Output, "", fmt.Sprintf("As you travel, you encounter a %s!", enemy.Name))
	if sc, err := e.scene(ctx, s); err == nil {
		if text, ok := e.Narrator.DescribeEncounter(ctx, sc, enemy); ok {
			res.Output = append(res.Output, text)
		}
	}
	res.Output = append(res.Output, msgCombatHint)
	return res, nil
}

// destination resolves arg against the connected locations by name or id,
// then against the named exits.
func (e *Engine) destination(ctx context.Context, from *types.Location, arg string) (*types.Location, error) {
	conns, err := e.connections(ctx, from)
	if err != nil {
		return nil, err
	}
	for _, l := range conns {
		if strings.EqualFold(l.Name, arg) || l.ID == arg {
			return l, nil
		}
	}
	if id, ok := from.Exits[arg]; ok {
		for _, l := range conns {
			if l.ID == id {
				return l, nil
			}
		}
	}
	return nil, nil
}

// rollEncounter applies the configured encounter policy to a move into loc.
func (e *Engine) rollEncounter(ctx context.Context, loc *types.Location) (*types.EnemyTemplate, error) {
	if e.Rules.Encounters == EncounterFlat {
		if e.RNG.Roll(100) > e.Rules.FlatChance {
			return nil, nil
		}
		all, err := e.Store.ListEnemies(ctx)
		if err != nil {
			return nil, fmt.Errorf("list enemies: %w", err)
		}
		if len(all) == 0 {
			return nil, nil
		}
		t := all[e.RNG.Pick(len(all))]
		return &t, nil
	}

	if loc.DangerLevel <= 0 || len(loc.Enemies) == 0 {
		return nil, nil
	}
	if e.RNG.Roll(100) > loc.DangerLevel*e.Rules.DangerFactor {
		return nil, nil
	}
	id := loc.Enemies[e.RNG.Pick(len(loc.Enemies))]
	t, err := lookup(e.Store.GetEnemy(ctx, id))
	if err != nil {
		return nil, fmt.Errorf("enemy %s: %w", id, err)
	}
	return t, nil
}

// --- look ---

func (e *Engine) look(ctx context.Context, s *state.Session, arg string) (types.Result, error) {
	if arg != "" {
		target := strings.TrimPrefix(arg, "the ")
		return say(fmt.Sprintf("You examine the %s, but don't notice anything special.", target)), nil
	}

	sc, err := e.scene(ctx, s)
	if err != nil {
		return types.Result{}, err
	}
	if !sc.Visited {
		c := e.begin(s)
		c.visit(s.Location.ID, e.now())
		if err := e.commit(ctx, s, c); err != nil {
			return types.Result{}, err
		}
	}

	loc := s.Location
	out := []string{fmt.Sprintf("== %s ==", loc.Name)}
	if text, ok := e.Narrator.DescribeLocation(ctx, sc); ok {
		out = append(out, text)
	} else {
		out = append(out, loc.Description)
	}

	if len(sc.NPCs) > 0 {
		out = append(out, "", "People here:")
		for _, name := range sc.NPCs {
			out = append(out, "- "+name)
		}
	}
	if len(sc.Connections) > 0 {
		out = append(out, "", "Paths lead to:")
		for _, name := range sc.Connections {
			out = append(out, "- "+name)
		}
	}
	if len(s.AvailableQuests) > 0 {
		out = append(out, "", "Available quests:")
		for _, q := range s.AvailableQuests {
			giver := q.Giver
			if npc, err := lookup(e.Store.GetNPC(ctx, q.Giver)); err == nil && npc != nil {
				giver = npc.Name
			}
			out = append(out, fmt.Sprintf("- %s (from %s)", q.Name, giver))
		}
	}
	if s.InCombat() {
		en := s.Combat.Enemy
		out = append(out, "", fmt.Sprintf("You are fighting a %s (%d/%d health).", en.Name, en.Health, en.MaxHealth))
	}
	return types.Result{Output: out}, nil
}

// --- read-only views ---

func (e *Engine) inventory(ctx context.Context, s *state.Session) (types.Result, error) {
	ids := heldItems(s.Player)
	if len(ids) == 0 {
		return say("Your inventory is empty.", "", fmt.Sprintf("Gold: %d", s.Player.Gold)), nil
	}
	equipped := map[string]bool{}
	for _, id := range s.Player.Equipped {
		equipped[id] = true
	}

	out := []string{"Inventory:"}
	for _, id := range ids {
		qty := s.Player.Inventory[id]
		it, err := lookup(e.Store.GetItem(ctx, id))
		if err != nil {
			return types.Result{}, fmt.Errorf("item %s: %w", id, err)
		}
		if it == nil {
			out = append(out, fmt.Sprintf("- Unknown item (x%d)", qty))
			continue
		}
		line := fmt.Sprintf("- %s (x%d): %s", it.Name, qty, it.Description)
		if equipped[id] {
			line += " [equipped]"
		}
		out = append(out, line)
	}
	out = append(out, "", fmt.Sprintf("Gold: %d", s.Player.Gold))
	return types.Result{Output: out}, nil
}

func (e *Engine) status(s *state.Session) types.Result {
	p := s.Player
	out := []string{
		fmt.Sprintf("Character: %s (Level %d %s)", p.Name, p.Level, p.Class),
		fmt.Sprintf("Health: %d/%d", p.Health, p.MaxHealth),
	}
	if p.MaxMana > 0 {
		out = append(out, fmt.Sprintf("Mana: %d/%d", p.Mana, p.MaxMana))
	}
	out = append(out,
		fmt.Sprintf("XP: %d (next level at %d)", p.Experience, p.Level*e.Rules.XPPerLevel),
		fmt.Sprintf("Gold: %d", p.Gold),
		"",
		"Stats:",
		fmt.Sprintf("- Strength: %d", p.Stats.Strength),
		fmt.Sprintf("- Dexterity: %d", p.Stats.Dexterity),
		fmt.Sprintf("- Intelligence: %d", p.Stats.Intelligence),
		fmt.Sprintf("- Attack: %d", p.Stats.Attack),
		fmt.Sprintf("- Defense: %d", p.Stats.Defense),
		fmt.Sprintf("- Evasion: %d", p.Stats.Evasion),
	)
	if p.Stats.Magic > 0 {
		out = append(out, fmt.Sprintf("- Magic: %d", p.Stats.Magic))
	}
	if p.Stats.Stealth > 0 {
		out = append(out, fmt.Sprintf("- Stealth: %d", p.Stats.Stealth))
	}
	return types.Result{Output: out}
}

func (e *Engine) quests(ctx context.Context, s *state.Session) (types.Result, error) {
	p := s.Player
	ids := make([]string, 0, len(p.Quests))
	for id := range p.Quests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var active, done []string
	for _, id := range ids {
		qp := p.Quests[id]
		q, err := lookup(e.Store.GetQuest(ctx, id))
		if err != nil {
			return types.Result{}, fmt.Errorf("quest %s: %w", id, err)
		}
		if q == nil {
			continue
		}
		if qp.Status == types.QuestCompleted {
			done = append(done, "- "+q.Name)
			continue
		}
		active = append(active, fmt.Sprintf("- %s: %s", q.Name, qp.Status), "  "+q.Description)
		for _, o := range q.Objectives {
			have := qp.Progress[o.ID]
			if o.Kind == types.ObjectiveCollect {
				have = p.Inventory[o.Target]
			}
			need := max(o.Count, 1)
			active = append(active, fmt.Sprintf("  [%d/%d] %s", min(have, need), need, o.Description))
		}
	}

	if len(active) == 0 && len(done) == 0 {
		return say("You don't have any active quests."), nil
	}
	var out []string
	if len(active) > 0 {
		out = append(out, "Active Quests:")
		out = append(out, active...)
	} else {
		out = append(out, "You don't have any active quests.")
	}
	if len(done) > 0 {
		out = append(out, "", "Completed Quests:")
		out = append(out, done...)
	}
	return types.Result{Output: out}, nil
}

func (e *Engine) showMap(ctx context.Context, s *state.Session) (types.Result, error) {
	conns, err := e.connections(ctx, s.Location)
	if err != nil {
		return types.Result{}, err
	}
	dirs := map[string]string{}
	for dir, id := range s.Location.Exits {
		if prev, ok := dirs[id]; !ok || dir < prev {
			dirs[id] = dir
		}
	}

	out := []string{fmt.Sprintf("You are in %s.", s.Location.Name)}
	if len(conns) == 0 {
		out = append(out, "There are no paths from here.")
		return types.Result{Output: out}, nil
	}
	out = append(out, "Paths lead to:")
	for _, l := range conns {
		line := "- " + l.Name
		if dir, ok := dirs[l.ID]; ok {
			line += " (" + dir + ")"
		}
		if _, seen := s.Player.Visited[l.ID]; !seen {
			line += " [unexplored]"
		}
		out = append(out, line)
	}
	return types.Result{Output: out}, nil
}

// --- talk ---

func (e *Engine) findNPC(ctx context.Context, loc *types.Location, arg string) (*types.NPC, error) {
	var partial *types.NPC
	for _, id := range loc.NPCs {
		npc, err := lookup(e.Store.GetNPC(ctx, id))
		if err != nil {
			return nil, fmt.Errorf("npc %s: %w", id, err)
		}
		if npc == nil {
			continue
		}
		match, exact := matchName(arg, npc.ID, npc.Name)
		if exact {
			return npc, nil
		}
		if match && partial == nil {
			partial = npc
		}
	}
	return partial, nil
}

func (e *Engine) talk(ctx context.Context, s *state.Session, in parser.Intent) (types.Result, error) {
	npc, err := e.findNPC(ctx, s.Location, in.Arg)
	if err != nil {
		return types.Result{}, err
	}
	if npc == nil {
		return say(fmt.Sprintf("You try to talk to %s, but they don't seem to be here.", in.Arg)), nil
	}

	c := e.begin(s)
	if err := e.progressObjectives(ctx, c, types.ObjectiveTalk, npc.ID); err != nil {
		return types.Result{}, err
	}

	var offered []types.Quest
	for _, id := range npc.Quests {
		q, err := lookup(e.Store.GetQuest(ctx, id))
		if err != nil {
			return types.Result{}, fmt.Errorf("quest %s: %w", id, err)
		}
		if q != nil {
			offered = append(offered, *q)
		}
	}
	topic := dialogue.Select(npc, c.p, offered)

	var notes []string
	stage := narrative.QuestStage("")
	switch topic.Stage {
	case dialogue.Offer:
		stage = narrative.StageOffer
		c.startQuest(topic.Quest.ID)
		c.record(types.Choice{At: e.now(), Location: s.Location.ID, Command: in.Raw, Note: "accepted quest " + topic.Quest.ID})
		notes = append(notes, "", fmt.Sprintf("Quest accepted: %s", topic.Quest.Name))
	case dialogue.Progress:
		stage = narrative.StageProgress
	case dialogue.TurnIn:
		stage = narrative.StageComplete
		lines, err := e.turnIn(ctx, c, topic.Quest)
		if err != nil {
			return types.Result{}, err
		}
		c.record(types.Choice{At: e.now(), Location: s.Location.ID, Command: in.Raw, Note: "completed quest " + topic.Quest.ID})
		notes = append(notes, "")
		notes = append(notes, lines...)
	}

	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}

	line := fmt.Sprintf("%s says: \"%s\"", npc.Name, dialogue.Line(npc, topic))
	if topic.Quest != nil {
		if text, ok := e.Narrator.QuestDialogue(ctx, npc, topic.Quest, stage); ok {
			line = text
		}
	}
	return types.Result{Output: append([]string{line}, notes...)}, nil
}

// turnIn completes q: collected items are handed over and the rewards
// granted.
func (e *Engine) turnIn(ctx context.Context, c *change, q *types.Quest) ([]string, error) {
	for _, o := range q.Objectives {
		if o.Kind == types.ObjectiveCollect {
			c.addItem(o.Target, -max(o.Count, 1))
		}
	}
	c.completeQuest(q.ID)

	out := []string{fmt.Sprintf("Quest complete: %s", q.Name)}
	var rewards []string
	if q.Rewards.XP > 0 {
		c.addXP(q.Rewards.XP)
		rewards = append(rewards, fmt.Sprintf("%d XP", q.Rewards.XP))
	}
	if q.Rewards.Gold > 0 {
		c.addGold(q.Rewards.Gold)
		rewards = append(rewards, fmt.Sprintf("%d gold", q.Rewards.Gold))
	}
	ids := make([]string, 0, len(q.Rewards.Items))
	for id := range q.Rewards.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		qty := q.Rewards.Items[id]
		name, err := e.itemName(ctx, id)
		if err != nil {
			return nil, err
		}
		c.addItem(id, qty)
		rewards = append(rewards, fmt.Sprintf("%s (x%d)", name, qty))
	}
	if len(rewards) > 0 {
		out = append(out, "You receive: "+strings.Join(rewards, ", "))
	}
	out = append(out, e.levelUp(c)...)
	return out, nil
}

// progressObjectives advances every active objective of the given kind
// aimed at target.
func (e *Engine) progressObjectives(ctx context.Context, c *change, kind types.ObjectiveKind, target string) error {
	ids := make([]string, 0, len(c.p.Quests))
	for id, qp := range c.p.Quests {
		if qp.Status == types.QuestActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		q, err := lookup(e.Store.GetQuest(ctx, id))
		if err != nil {
			return fmt.Errorf("quest %s: %w", id, err)
		}
		if q == nil {
			continue
		}
		for _, o := range q.Objectives {
			if o.Kind != kind || o.Target != target {
				continue
			}
			if c.p.Quests[id].Progress[o.ID] < max(o.Count, 1) {
				c.advanceQuest(id, o.ID, 1)
			}
		}
	}
	return nil
}

// --- use ---

func (e *Engine) findItem(ctx context.Context, p *types.Player, arg string) (*types.Item, error) {
	var partial *types.Item
	for _, id := range heldItems(p) {
		it, err := lookup(e.Store.GetItem(ctx, id))
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", id, err)
		}
		if it == nil {
			continue
		}
		match, exact := matchName(arg, it.ID, it.Name)
		if exact {
			return it, nil
		}
		if match && partial == nil {
			partial = it
		}
	}
	return partial, nil
}

func (e *Engine) use(ctx context.Context, s *state.Session, arg string) (types.Result, error) {
	it, err := e.findItem(ctx, s.Player, arg)
	if err != nil {
		return types.Result{}, err
	}
	if it == nil {
		return say(fmt.Sprintf("You try to use %s, but nothing happens.", arg)), nil
	}
	if s.InCombat() {
		return e.combatRound(ctx, s, roundUse, it)
	}

	c := e.begin(s)
	lines, err := e.applyItem(ctx, c, it)
	if err != nil {
		return types.Result{}, err
	}
	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}
	return types.Result{Output: lines}, nil
}

// applyItem consumes or equips it on the pending change.
func (e *Engine) applyItem(ctx context.Context, c *change, it *types.Item) ([]string, error) {
	p := c.p
	switch it.Type {
	case types.ItemConsumable:
		heal := min(it.HealthRestore, p.MaxHealth-p.Health)
		mana := min(it.ManaRestore, p.MaxMana-p.Mana)
		if heal <= 0 && mana <= 0 {
			if it.HealthRestore > 0 {
				return []string{"You are already at full health."}, nil
			}
			return []string{fmt.Sprintf("You use the %s, but nothing happens.", it.Name)}, nil
		}
		c.addItem(it.ID, -1)
		var gains []string
		if heal > 0 {
			c.setHealth(p.Health + heal)
			gains = append(gains, fmt.Sprintf("%d health", heal))
		}
		if mana > 0 {
			c.setMana(p.Mana + mana)
			gains = append(gains, fmt.Sprintf("%d mana", mana))
		}
		return []string{
			fmt.Sprintf("You use the %s and recover %s.", it.Name, strings.Join(gains, " and ")),
			fmt.Sprintf("Health: %d/%d", p.Health, p.MaxHealth),
		}, nil

	case types.ItemWeapon, types.ItemArmor:
		slot := string(it.Type)
		prevID := p.Equipped[slot]
		if prevID == it.ID {
			return []string{fmt.Sprintf("The %s is already equipped.", it.Name)}, nil
		}
		st := p.Stats
		if prevID != "" {
			prev, err := lookup(e.Store.GetItem(ctx, prevID))
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", prevID, err)
			}
			if prev != nil {
				st.Attack -= prev.AttackBonus
				st.Defense -= prev.DefenseBonus
			}
		}
		st.Attack += it.AttackBonus
		st.Defense += it.DefenseBonus
		c.setStats(st)
		c.equip(slot, it.ID)
		return []string{fmt.Sprintf("You equip the %s. (Attack %d, Defense %d)", it.Name, st.Attack, st.Defense)}, nil
	}
	return []string{fmt.Sprintf("You turn the %s over in your hands, but find no use for it.", it.Name)}, nil
}
