// Package engine provides the Step() orchestrator that wires together
// parsing, session state, combat, persistence and narration into a single
// turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine/parser"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// Player-facing canned lines.
const (
	msgEmpty      = "Please enter a command."
	msgInCombat   = "You're in the middle of a fight! (attack, defend, use <item>, flee)"
	msgCombatHint = "What will you do? (attack, defend, use <item>, flee)"
	msgRepeat     = "You just tried that. Try something else or type 'help' for a list of commands."
	msgFallback   = "I don't understand that command. Type 'help' for a list of available commands."
	msgFarewell   = "You rest for now. Your progress has been saved."
)

// Engine interprets commands for any number of sessions. It holds no
// per-player state; everything mutable lives in the state.Session passed
// to Step.
type Engine struct {
	Store    store.Store
	Narrator *narrative.Narrator
	RNG      Dice
	Rules    Rules
	Logger   *zap.Logger
	Now      func() time.Time
}

// New creates an engine with default rules, an offline narrator and a
// time-seeded RNG. Callers override fields as needed.
func New(st store.Store, narrator *narrative.Narrator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if narrator == nil {
		narrator = narrative.New(nil, logger)
	}
	return &Engine{
		Store:    st,
		Narrator: narrator,
		RNG:      NewRNG(time.Now().UnixNano()),
		Rules:    DefaultRules(),
		Logger:   logger,
		Now:      time.Now,
	}
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// combatActions are the commands allowed while engaged.
var combatActions = map[parser.Action]bool{
	parser.ActionAttack:    true,
	parser.ActionDefend:    true,
	parser.ActionFlee:      true,
	parser.ActionUse:       true,
	parser.ActionLook:      true,
	parser.ActionStatus:    true,
	parser.ActionInventory: true,
	parser.ActionHelp:      true,
	parser.ActionMap:       true,
}

// Step processes one player command and returns the result. A non-nil
// error means the command could not be persisted; the session is left
// exactly as it was.
func (e *Engine) Step(ctx context.Context, s *state.Session, input string) (types.Result, error) {
	// 1. Parse input.
	in := parser.Parse(input)

	// 2. Empty input.
	if in.Action == parser.ActionNone {
		return say(msgEmpty), nil
	}

	// 3. Combat mode: rewrite movement to flee and restrict commands.
	if s.InCombat() {
		if in.Action == parser.ActionMove {
			in.Action = parser.ActionFlee
			in.Arg = ""
		}
		if !combatActions[in.Action] {
			s.LastCommand = in.Raw
			return types.Result{Output: []string{msgInCombat}, Combat: true}, nil
		}
	}

	// 4. Missing argument. Attacking while engaged needs no target.
	var (
		res types.Result
		err error
	)
	if parser.RequiresArg(in.Action) && in.Arg == "" && !(in.Action == parser.ActionAttack && s.InCombat()) {
		res = say(parser.MissingArgPrompt(in.Action))
	} else {
		res, err = e.dispatch(ctx, s, in)
	}
	if err != nil {
		return types.Result{}, err
	}

	// 5. Remember the command for loop detection.
	s.LastCommand = in.Raw
	res.Combat = s.InCombat()
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, s *state.Session, in parser.Intent) (types.Result, error) {
	switch in.Action {
	case parser.ActionMove:
		return e.move(ctx, s, in.Arg)
	case parser.ActionLook:
		return e.look(ctx, s, in.Arg)
	case parser.ActionInventory:
		return e.inventory(ctx, s)
	case parser.ActionStatus:
		return e.status(s), nil
	case parser.ActionQuests:
		return e.quests(ctx, s)
	case parser.ActionMap:
		return e.showMap(ctx, s)
	case parser.ActionHelp:
		return say(helpText), nil
	case parser.ActionTalk:
		return e.talk(ctx, s, in)
	case parser.ActionUse:
		return e.use(ctx, s, in.Arg)
	case parser.ActionAttack:
		if s.InCombat() {
			return e.combatRound(ctx, s, roundAttack, nil)
		}
		return e.attackTarget(ctx, s, in.Arg)
	case parser.ActionDefend:
		if s.InCombat() {
			return e.combatRound(ctx, s, roundDefend, nil)
		}
		return say("There is nothing here to defend against."), nil
	case parser.ActionFlee:
		if s.InCombat() {
			return e.flee(ctx, s)
		}
		return say("There is nothing here to flee from."), nil
	case parser.ActionQuit:
		return types.Result{Output: []string{msgFarewell}, Quit: true}, nil
	}
	return e.improvise(ctx, s, in)
}

// improvise handles free text: the narrator responds in character and the
// action is recorded in the player's history.
func (e *Engine) improvise(ctx context.Context, s *state.Session, in parser.Intent) (types.Result, error) {
	if in.Raw == s.LastCommand {
		return say(msgRepeat), nil
	}

	c := e.begin(s)
	c.record(types.Choice{At: e.now(), Location: s.Location.ID, Command: in.Raw})
	if err := e.commit(ctx, s, c); err != nil {
		return types.Result{}, err
	}

	sc, err := e.scene(ctx, s)
	if err != nil {
		return types.Result{}, err
	}
	if text, ok := e.Narrator.RespondToAction(ctx, sc, in.Raw); ok {
		return say(text), nil
	}
	return say(msgFallback), nil
}

// lookup wraps a catalog get, turning a missing entry into (nil, nil).
func lookup[T any](v *T, err error) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func say(lines ...string) types.Result {
	return types.Result{Output: lines}
}

func (e *Engine) itemName(ctx context.Context, id string) (string, error) {
	it, err := lookup(e.Store.GetItem(ctx, id))
	if err != nil {
		return "", fmt.Errorf("item %s: %w", id, err)
	}
	if it == nil {
		return id, nil
	}
	return it.Name, nil
}
