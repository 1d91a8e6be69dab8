package engine

import "fmt"

// EncounterPolicy selects how movement triggers random encounters.
type EncounterPolicy string

const (
	// EncounterDanger rolls d100 <= danger*10 and draws from the
	// destination's enemy list.
	EncounterDanger EncounterPolicy = "danger"
	// EncounterFlat rolls a fixed chance on every move and draws from the
	// whole enemy catalog.
	EncounterFlat EncounterPolicy = "flat"
)

// ParseEncounterPolicy validates a policy name.
func ParseEncounterPolicy(s string) (EncounterPolicy, error) {
	switch p := EncounterPolicy(s); p {
	case EncounterDanger, EncounterFlat:
		return p, nil
	case "":
		return EncounterDanger, nil
	}
	return "", fmt.Errorf("unknown encounter policy %q", s)
}

// Rules holds the tunable game constants.
type Rules struct {
	Start         string // start and respawn location
	StartingGold  int
	StartingItems map[string]int

	Encounters   EncounterPolicy
	DangerFactor int // percent per danger level
	FlatChance   int // percent, flat policy only
	FleeChance   float64

	XPPerLevel       int
	LevelHealth      int
	LevelAttack      int
	LevelDefense     int
	DeathGoldPenalty int // divisor: gold lost is gold/DeathGoldPenalty
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		Start:            "village_start",
		StartingGold:     10,
		StartingItems:    map[string]int{"potion_health": 2},
		Encounters:       EncounterDanger,
		DangerFactor:     10,
		FlatChance:       20,
		FleeChance:       0.5,
		XPPerLevel:       100,
		LevelHealth:      10,
		LevelAttack:      3,
		LevelDefense:     2,
		DeathGoldPenalty: 4,
	}
}
