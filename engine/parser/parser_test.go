package parser

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  Intent{},
		},
		{
			name:  "whitespace only",
			input: "   \t ",
			want:  Intent{},
		},

		// Basic verbs
		{
			name:  "look",
			input: "look",
			want:  Intent{Action: ActionLook, Verb: "look", Raw: "look"},
		},
		{
			name:  "uppercase and padding",
			input: "  INVENTORY  ",
			want:  Intent{Action: ActionInventory, Verb: "inventory", Raw: "inventory"},
		},

		// Synonyms
		{
			name:  "i → inventory",
			input: "i",
			want:  Intent{Action: ActionInventory, Verb: "i", Raw: "i"},
		},
		{
			name:  "stats → status",
			input: "stats",
			want:  Intent{Action: ActionStatus, Verb: "stats", Raw: "stats"},
		},
		{
			name:  "journal → quests",
			input: "journal",
			want:  Intent{Action: ActionQuests, Verb: "journal", Raw: "journal"},
		},
		{
			name:  "where → map",
			input: "where",
			want:  Intent{Action: ActionMap, Verb: "where", Raw: "where"},
		},
		{
			name:  "commands → help",
			input: "commands",
			want:  Intent{Action: ActionHelp, Verb: "commands", Raw: "commands"},
		},
		{
			name:  "menu → quit",
			input: "menu",
			want:  Intent{Action: ActionQuit, Verb: "menu", Raw: "menu"},
		},
		{
			name:  "block → defend",
			input: "block",
			want:  Intent{Action: ActionDefend, Verb: "block", Raw: "block"},
		},
		{
			name:  "run → flee",
			input: "run",
			want:  Intent{Action: ActionFlee, Verb: "run", Raw: "run"},
		},

		// Arguments
		{
			name:  "travel with multiword destination",
			input: "travel   Forest   Path",
			want:  Intent{Action: ActionMove, Verb: "travel", Arg: "forest path", Raw: "travel forest path"},
		},
		{
			name:  "go to strips to",
			input: "go to village market",
			want:  Intent{Action: ActionMove, Verb: "go", Arg: "village market", Raw: "go to village market"},
		},
		{
			name:  "go n expands direction",
			input: "go n",
			want:  Intent{Action: ActionMove, Verb: "go", Arg: "north", Raw: "go n"},
		},
		{
			name:  "talk to strips to",
			input: "talk to Elder",
			want:  Intent{Action: ActionTalk, Verb: "talk", Arg: "elder", Raw: "talk to elder"},
		},
		{
			name:  "speak with",
			input: "speak with the merchant",
			want:  Intent{Action: ActionTalk, Verb: "speak", Arg: "the merchant", Raw: "speak with the merchant"},
		},
		{
			name:  "consume item",
			input: "consume health potion",
			want:  Intent{Action: ActionUse, Verb: "consume", Arg: "health potion", Raw: "consume health potion"},
		},
		{
			name:  "fight target",
			input: "fight wolf",
			want:  Intent{Action: ActionAttack, Verb: "fight", Arg: "wolf", Raw: "fight wolf"},
		},
		{
			name:  "look at",
			input: "look at fountain",
			want:  Intent{Action: ActionLook, Verb: "look", Arg: "fountain", Raw: "look at fountain"},
		},

		// Directions
		{
			name:  "bare n",
			input: "n",
			want:  Intent{Action: ActionMove, Verb: "n", Arg: "north", Raw: "n"},
		},
		{
			name:  "bare south",
			input: "south",
			want:  Intent{Action: ActionMove, Verb: "south", Arg: "south", Raw: "south"},
		},

		// Unknown
		{
			name:  "unknown verb",
			input: "Dance wildly",
			want:  Intent{Action: ActionUnknown, Verb: "dance", Arg: "wildly", Raw: "dance wildly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequiresArg(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionMove, true},
		{ActionTalk, true},
		{ActionUse, true},
		{ActionAttack, true},
		{ActionLook, false},
		{ActionInventory, false},
		{ActionFlee, false},
		{ActionDefend, false},
	}
	for _, tt := range tests {
		if got := RequiresArg(tt.action); got != tt.want {
			t.Errorf("RequiresArg(%q) = %v, want %v", tt.action, got, tt.want)
		}
		if tt.want && MissingArgPrompt(tt.action) == "" {
			t.Errorf("MissingArgPrompt(%q) is empty", tt.action)
		}
	}
}
