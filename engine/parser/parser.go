// Package parser converts command strings into Intents.
// Intentionally dumb: a fixed verb table, no NLP.
package parser

import "strings"

// Action is the handler an input routes to.
type Action string

const (
	ActionNone      Action = ""
	ActionMove      Action = "move"
	ActionLook      Action = "look"
	ActionInventory Action = "inventory"
	ActionStatus    Action = "status"
	ActionQuests    Action = "quests"
	ActionTalk      Action = "talk"
	ActionUse       Action = "use"
	ActionAttack    Action = "attack"
	ActionDefend    Action = "defend"
	ActionFlee      Action = "flee"
	ActionMap       Action = "map"
	ActionHelp      Action = "help"
	ActionQuit      Action = "quit"
	ActionUnknown   Action = "unknown"
)

// Intent is a parsed command.
type Intent struct {
	Action Action
	Verb   string // first token as typed, lowercased
	Arg    string // remaining tokens joined by single spaces
	Raw    string // normalized input: lowercased and trimmed
}

var verbs = map[string]Action{
	// Movement
	"go":     ActionMove,
	"move":   ActionMove,
	"travel": ActionMove,
	"walk":   ActionMove,

	// Look
	"look":    ActionLook,
	"examine": ActionLook,
	"inspect": ActionLook,
	"l":       ActionLook,

	"inventory": ActionInventory,
	"items":     ActionInventory,
	"inv":       ActionInventory,
	"i":         ActionInventory,

	"status":    ActionStatus,
	"stats":     ActionStatus,
	"character": ActionStatus,

	"quest":   ActionQuests,
	"quests":  ActionQuests,
	"journal": ActionQuests,

	"talk":  ActionTalk,
	"speak": ActionTalk,

	"use":     ActionUse,
	"consume": ActionUse,

	// Combat
	"attack": ActionAttack,
	"fight":  ActionAttack,
	"defend": ActionDefend,
	"block":  ActionDefend,
	"flee":   ActionFlee,
	"run":    ActionFlee,
	"escape": ActionFlee,

	"map":    ActionMap,
	"routes": ActionMap,
	"where":  ActionMap,

	"help":     ActionHelp,
	"commands": ActionHelp,

	"quit": ActionQuit,
	"exit": ActionQuit,
	"menu": ActionQuit,
}

var directionExpansions = map[string]string{
	"n":  "north",
	"s":  "south",
	"e":  "east",
	"w":  "west",
	"ne": "northeast",
	"nw": "northwest",
	"se": "southeast",
	"sw": "southwest",
	"u":  "up",
	"d":  "down",
}

// Full direction names that are standalone shortcuts for "go <dir>".
var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
	"up": true, "down": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) Intent {
	raw := strings.ToLower(strings.TrimSpace(input))
	words := strings.Fields(raw)
	if len(words) == 0 {
		return Intent{}
	}
	raw = strings.Join(words, " ")

	// Bare direction: "n", "south" → move <direction>.
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return Intent{Action: ActionMove, Verb: words[0], Arg: dir, Raw: raw}
		}
		if directionNames[words[0]] {
			return Intent{Action: ActionMove, Verb: words[0], Arg: words[0], Raw: raw}
		}
	}

	verb := words[0]
	rest := words[1:]

	action, ok := verbs[verb]
	if !ok {
		return Intent{Action: ActionUnknown, Verb: verb, Arg: strings.Join(rest, " "), Raw: raw}
	}

	switch action {
	case ActionTalk:
		// "talk to elder", "speak with elder"
		if len(rest) > 0 && (rest[0] == "to" || rest[0] == "with") {
			rest = rest[1:]
		}
	case ActionMove:
		// "go to the market"
		if len(rest) > 0 && rest[0] == "to" {
			rest = rest[1:]
		}
		if len(rest) == 1 {
			if dir, ok := directionExpansions[rest[0]]; ok {
				rest = []string{dir}
			}
		}
	case ActionLook:
		// "look at sword"
		if len(rest) > 0 && rest[0] == "at" {
			rest = rest[1:]
		}
	}

	return Intent{Action: action, Verb: verb, Arg: strings.Join(rest, " "), Raw: raw}
}

// RequiresArg reports whether action needs an argument to do anything.
func RequiresArg(a Action) bool {
	switch a {
	case ActionMove, ActionTalk, ActionUse, ActionAttack:
		return true
	}
	return false
}

// MissingArgPrompt is the clarifying question for an action missing its argument.
func MissingArgPrompt(a Action) string {
	switch a {
	case ActionMove:
		return "Go where? Please specify a location."
	case ActionTalk:
		return "Talk to whom? Please specify an NPC."
	case ActionUse:
		return "Use what? Please specify an item."
	case ActionAttack:
		return "Attack what? Please specify a target."
	}
	return ""
}
