package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/types"
)

// Defaults for a new Narrator.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxPrompt = 4000
)

// persona is sent as the context part of every request.
const persona = `You narrate a medieval fantasy text adventure with magic, monsters and quests.
The player is on a journey to become a hero. Write vivid, immersive prose in the second person.
Keep every answer to at most three short paragraphs.`

// groundingRule closes every prompt.
const groundingRule = `Only mention people, creatures, places and items named above.
Do not invent new characters, enemies, locations, items, abilities or rewards.`

// Scene is the fact sheet a prompt may draw on. Every list holds display
// names of things actually present.
type Scene struct {
	Player      *types.Player
	Location    *types.Location
	NPCs        []string
	Enemies     []string
	Connections []string
	Inventory   []string
	Visited     bool // the player has been here before
}

// QuestStage selects the tone of quest dialogue.
type QuestStage string

const (
	StageOffer    QuestStage = "introduction"
	StageProgress QuestStage = "in-progress"
	StageComplete QuestStage = "completion"
)

// Narrator wraps a Generator with timeouts, prompt bounds and logging.
// Every method reports ok=false instead of an error; callers pick their own
// fallback text.
type Narrator struct {
	Gen       Generator
	Timeout   time.Duration
	MaxPrompt int  // prompt length bound in runes
	Flavor    bool // also narrate encounters, combat, victories and loot
	Logger    *zap.Logger
}

// New returns a Narrator with default bounds. A nil gen means Offline.
func New(gen Generator, logger *zap.Logger) *Narrator {
	if gen == nil {
		gen = Offline{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{
		Gen:       gen,
		Timeout:   DefaultTimeout,
		MaxPrompt: DefaultMaxPrompt,
		Flavor:    true,
		Logger:    logger,
	}
}

func (n *Narrator) generate(ctx context.Context, kind, prompt string) (string, bool) {
	if n == nil || n.Gen == nil {
		return "", false
	}
	prompt = bound(prompt+"\n\n"+groundingRule, n.MaxPrompt)

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := n.Gen.Generate(ctx, persona, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		n.logger().Warn("narrative generation failed",
			zap.String("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", false
	}
	n.logger().Debug("narrative generated",
		zap.String("kind", kind),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))
	return strings.TrimSpace(text), true
}

func (n *Narrator) logger() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}

// bound truncates s to max runes, keeping the closing rule intact.
func bound(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	tail := "\n\n" + groundingRule
	keep := max - utf8.RuneCountInString(tail)
	if keep < 0 {
		keep = 0
	}
	body := []rune(strings.TrimSuffix(s, tail))
	if keep > len(body) {
		keep = len(body)
	}
	return string(body[:keep]) + tail
}

func list(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func (sc Scene) facts() string {
	var b strings.Builder
	if sc.Player != nil {
		fmt.Fprintf(&b, "Player: %s, a level %d %s (health %d/%d).\n",
			sc.Player.Name, sc.Player.Level, sc.Player.Class, sc.Player.Health, sc.Player.MaxHealth)
	}
	if sc.Location != nil {
		fmt.Fprintf(&b, "Location: %s. %s\nDanger level: %d\n",
			sc.Location.Name, sc.Location.Description, sc.Location.DangerLevel)
	}
	fmt.Fprintf(&b, "People present: %s\n", list(sc.NPCs))
	fmt.Fprintf(&b, "Creatures that roam here: %s\n", list(sc.Enemies))
	fmt.Fprintf(&b, "Paths lead to: %s\n", list(sc.Connections))
	fmt.Fprintf(&b, "Player carries: %s\n", list(sc.Inventory))
	return b.String()
}

// DescribeLocation elaborates on the current location.
func (n *Narrator) DescribeLocation(ctx context.Context, sc Scene) (string, bool) {
	var b strings.Builder
	b.WriteString("Describe what the player sees, hears and feels here.\n\n")
	b.WriteString(sc.facts())
	if sc.Visited {
		b.WriteString("The player has been here before.\n")
	}
	return n.generate(ctx, "location", b.String())
}

// RespondToAction narrates the result of a free-text action.
func (n *Narrator) RespondToAction(ctx context.Context, sc Scene, action string) (string, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "The player attempts: %q\n\n", action)
	b.WriteString(sc.facts())
	b.WriteString("\nNarrate what happens. Nothing in the game state changes as a result.\n")
	b.WriteString("If the action involves something not listed, gently say it is not here.\n")
	b.WriteString("If the player seems lost, suggest typing 'help'.\n")
	return n.generate(ctx, "action", b.String())
}

// DescribeEncounter narrates an enemy appearing.
func (n *Narrator) DescribeEncounter(ctx context.Context, sc Scene, enemy *types.EnemyTemplate) (string, bool) {
	if !n.flavor() {
		return "", false
	}
	prompt := fmt.Sprintf("A %s (%s) blocks the player's way. Describe the moment it appears, in two or three sentences.\n\n%s",
		enemy.Name, enemy.Description, sc.facts())
	return n.generate(ctx, "encounter", prompt)
}

// DescribeCombat narrates one combat round from its mechanical summary.
func (n *Narrator) DescribeCombat(ctx context.Context, sc Scene, enemy *types.EnemyTemplate, summary string) (string, bool) {
	if !n.flavor() {
		return "", false
	}
	prompt := fmt.Sprintf("Narrate this combat round against a %s (%s) in two sentences, staying true to the outcome.\nOutcome: %s\n\n%s",
		enemy.Name, enemy.Description, summary, sc.facts())
	return n.generate(ctx, "combat", prompt)
}

// DescribeVictory narrates the enemy's defeat.
func (n *Narrator) DescribeVictory(ctx context.Context, sc Scene, enemy *types.EnemyTemplate, xp, gold int) (string, bool) {
	if !n.flavor() {
		return "", false
	}
	prompt := fmt.Sprintf("The player has defeated a %s and earned %d experience and %d gold. Describe the end of the fight in two sentences.\n\n%s",
		enemy.Name, xp, gold, sc.facts())
	return n.generate(ctx, "victory", prompt)
}

// QuestDialogue voices an NPC at one stage of a quest.
func (n *Narrator) QuestDialogue(ctx context.Context, npc *types.NPC, q *types.Quest, stage QuestStage) (string, bool) {
	var steps []string
	for _, o := range q.Objectives {
		steps = append(steps, o.Description)
	}
	var rewards []string
	if q.Rewards.XP > 0 {
		rewards = append(rewards, fmt.Sprintf("%d XP", q.Rewards.XP))
	}
	if q.Rewards.Gold > 0 {
		rewards = append(rewards, fmt.Sprintf("%d gold", q.Rewards.Gold))
	}
	ids := make([]string, 0, len(q.Rewards.Items))
	for id := range q.Rewards.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rewards = append(rewards, fmt.Sprintf("%d %s", q.Rewards.Items[id], id))
	}
	prompt := fmt.Sprintf(`Write what %s (%s) says to the player about a quest.
Quest: %s. %s
Steps: %s
Rewards: %s
Stage: %s. An introduction explains the task, in-progress encourages, completion thanks the player and names the rewards.`,
		npc.Name, npc.Description, q.Name, q.Description, list(steps), list(rewards), stage)
	return n.generate(ctx, "quest", prompt)
}

// DescribeItemDiscovery narrates finding an item.
func (n *Narrator) DescribeItemDiscovery(ctx context.Context, item *types.Item, where string) (string, bool) {
	if !n.flavor() {
		return "", false
	}
	prompt := fmt.Sprintf("The player finds a %s (%s, a %s item worth %d gold) %s. Describe the discovery in one or two sentences.",
		item.Name, item.Description, item.Type, item.Value, where)
	return n.generate(ctx, "item", prompt)
}

func (n *Narrator) flavor() bool {
	return n != nil && n.Flavor
}
