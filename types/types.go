// Package types defines the shared data structures for the Wayfarer engine.
// This package contains type definitions plus a few small helpers
// (Clone, Validate, class profiles) that every layer needs.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Class is a playable character class.
type Class string

const (
	ClassWarrior Class = "warrior"
	ClassMage    Class = "mage"
	ClassRogue   Class = "rogue"
)

// Classes lists the valid classes in display order.
var Classes = []Class{ClassWarrior, ClassMage, ClassRogue}

// ParseClass returns the class named by s (case-insensitive).
func ParseClass(s string) (Class, bool) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Classes {
		if c == valid {
			return c, true
		}
	}
	return "", false
}

// Stats is the stat bundle carried by a player.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Intelligence int `json:"intelligence"`
	Attack       int `json:"attack"`
	Defense      int `json:"defense"`
	Evasion      int `json:"evasion"` // percent chance to dodge a counter-attack
	Magic        int `json:"magic,omitempty"`
	Stealth      int `json:"stealth,omitempty"`
}

// Profile is the base stat profile for a class.
type Profile struct {
	MaxHealth int
	MaxMana   int
	Stats     Stats
}

// ClassProfile returns the base profile for a class.
func ClassProfile(c Class) Profile {
	switch c {
	case ClassWarrior:
		return Profile{
			MaxHealth: 100,
			Stats:     Stats{Strength: 5, Dexterity: 3, Intelligence: 2, Attack: 5, Defense: 5, Evasion: 5},
		}
	case ClassMage:
		return Profile{
			MaxHealth: 70,
			MaxMana:   100,
			Stats:     Stats{Strength: 2, Dexterity: 3, Intelligence: 5, Attack: 3, Defense: 2, Evasion: 10, Magic: 5},
		}
	case ClassRogue:
		return Profile{
			MaxHealth: 80,
			Stats:     Stats{Strength: 3, Dexterity: 5, Intelligence: 3, Attack: 4, Defense: 3, Evasion: 20, Stealth: 5},
		}
	}
	return Profile{
		MaxHealth: 80,
		Stats:     Stats{Strength: 3, Dexterity: 3, Intelligence: 3, Attack: 3, Defense: 3},
	}
}

// QuestStatus is the lifecycle state of a quest for one player.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
)

// QuestProgress tracks one quest on a player: its status and a count per
// objective ID.
type QuestProgress struct {
	Status   QuestStatus    `json:"status"`
	Progress map[string]int `json:"progress"`
}

// Choice is one entry in a player's append-only action history.
type Choice struct {
	At       time.Time `json:"at"`
	Location string    `json:"location"`
	Command  string    `json:"command"`
	Note     string    `json:"note,omitempty"`
}

// Player is the persisted player document.
type Player struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Class      Class                    `json:"class"`
	Level      int                      `json:"level"`
	Experience int                      `json:"experience"`
	Health     int                      `json:"health"`
	MaxHealth  int                      `json:"max_health"`
	Mana       int                      `json:"mana"`
	MaxMana    int                      `json:"max_mana"`
	Stats      Stats                    `json:"stats"`
	Gold       int                      `json:"gold"`
	Location   string                   `json:"location"`
	Inventory  map[string]int           `json:"inventory"`
	Equipped   map[string]string        `json:"equipped"` // slot → item ID
	Quests     map[string]QuestProgress `json:"quests"`
	Visited    map[string]time.Time     `json:"visited_locations"`
	Choices    []Choice                 `json:"choices"`
	CreatedAt  time.Time                `json:"created_at"`
	LastPlayed time.Time                `json:"last_played"`
}

// Validate checks the player invariants.
func (p *Player) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if _, ok := ParseClass(string(p.Class)); !ok {
		errs = append(errs, fmt.Errorf("unknown class %q", p.Class))
	}
	if p.Level < 1 {
		errs = append(errs, fmt.Errorf("level %d below 1", p.Level))
	}
	if p.Experience < 0 {
		errs = append(errs, fmt.Errorf("experience %d below 0", p.Experience))
	}
	if p.Health < 0 || p.Health > p.MaxHealth {
		errs = append(errs, fmt.Errorf("health %d outside [0, %d]", p.Health, p.MaxHealth))
	}
	if p.Gold < 0 {
		errs = append(errs, fmt.Errorf("gold %d below 0", p.Gold))
	}
	for id, qty := range p.Inventory {
		if qty < 0 {
			errs = append(errs, fmt.Errorf("inventory %s has quantity %d", id, qty))
		}
	}
	return errors.Join(errs...)
}

// EnsureMaps replaces nil maps and slices with empty ones.
func (p *Player) EnsureMaps() {
	if p.Inventory == nil {
		p.Inventory = map[string]int{}
	}
	if p.Equipped == nil {
		p.Equipped = map[string]string{}
	}
	if p.Quests == nil {
		p.Quests = map[string]QuestProgress{}
	}
	if p.Visited == nil {
		p.Visited = map[string]time.Time{}
	}
	if p.Choices == nil {
		p.Choices = []Choice{}
	}
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	c := *p
	c.Inventory = make(map[string]int, len(p.Inventory))
	for k, v := range p.Inventory {
		c.Inventory[k] = v
	}
	c.Equipped = make(map[string]string, len(p.Equipped))
	for k, v := range p.Equipped {
		c.Equipped[k] = v
	}
	c.Quests = make(map[string]QuestProgress, len(p.Quests))
	for k, v := range p.Quests {
		prog := make(map[string]int, len(v.Progress))
		for ok, ov := range v.Progress {
			prog[ok] = ov
		}
		c.Quests[k] = QuestProgress{Status: v.Status, Progress: prog}
	}
	c.Visited = make(map[string]time.Time, len(p.Visited))
	for k, v := range p.Visited {
		c.Visited[k] = v
	}
	c.Choices = append([]Choice(nil), p.Choices...)
	return &c
}

// XPForNextLevel returns the experience needed to leave the current level.
func (p *Player) XPForNextLevel() int {
	return p.Level * 100
}

// Location is a static world location.
type Location struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	DangerLevel int               `json:"danger_level"`
	NPCs        []string          `json:"npcs"`
	Enemies     []string          `json:"enemies"`
	Connections []string          `json:"connections"`
	Exits       map[string]string `json:"exits,omitempty"` // direction → location ID
}

// ItemType classifies catalog items.
type ItemType string

const (
	ItemConsumable ItemType = "consumable"
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemMisc       ItemType = "misc"
)

// Item is a catalog item. Quantities owned live on the player.
type Item struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          ItemType `json:"type"`
	Description   string   `json:"description"`
	Value         int      `json:"value"`
	HealthRestore int      `json:"health_restore,omitempty"`
	ManaRestore   int      `json:"mana_restore,omitempty"`
	AttackBonus   int      `json:"attack_bonus,omitempty"`
	DefenseBonus  int      `json:"defense_bonus,omitempty"`
}

// GoldRange is a gold reward. Min == Max means a fixed amount.
type GoldRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// EnemyTemplate is a catalog enemy. Templates are shared and never mutated.
type EnemyTemplate struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Level       int                `json:"level"`
	MaxHealth   int                `json:"max_health"`
	Attack      int                `json:"attack"`
	Defense     int                `json:"defense"`
	XPReward    int                `json:"xp_reward"`
	Gold        GoldRange          `json:"gold_reward"`
	Loot        map[string]float64 `json:"loot_table,omitempty"` // item ID → drop probability
}

// Dialogue holds an NPC's canned lines.
type Dialogue struct {
	Greeting      string `json:"greeting"`
	QuestOffer    string `json:"quest_offer,omitempty"`
	QuestActive   string `json:"quest_active,omitempty"`
	QuestComplete string `json:"quest_complete,omitempty"`
	Farewell      string `json:"farewell,omitempty"`
}

// NPC is a catalog non-player character.
type NPC struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Dialogue    Dialogue `json:"dialogue"`
	Quests      []string `json:"quests,omitempty"`
}

// ObjectiveKind is what an objective asks of the player.
type ObjectiveKind string

const (
	ObjectiveTalk    ObjectiveKind = "talk"    // talk to NPC Target
	ObjectiveDefeat  ObjectiveKind = "defeat"  // defeat Count enemies of template Target
	ObjectiveCollect ObjectiveKind = "collect" // hold Count of item Target
)

// Objective is one step of a quest.
type Objective struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Kind        ObjectiveKind `json:"kind"`
	Target      string        `json:"target"`
	Count       int           `json:"count"`
}

// Rewards are granted when a quest is turned in.
type Rewards struct {
	XP    int            `json:"xp"`
	Gold  int            `json:"gold"`
	Items map[string]int `json:"items,omitempty"`
}

// Quest is a catalog quest.
type Quest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Giver       string      `json:"giver"`
	MinLevel    int         `json:"min_level"`
	Objectives  []Objective `json:"objectives"`
	Rewards     Rewards     `json:"rewards"`
}

// World holds fixture metadata.
type World struct {
	Title string `json:"title"`
	Start string `json:"start"`
	Intro string `json:"intro,omitempty"`
}

// Catalog is the complete fixture data set, loaded once and read-only after.
type Catalog struct {
	World     World
	Locations map[string]Location
	Items     map[string]Item
	Enemies   map[string]EnemyTemplate
	NPCs      map[string]NPC
	Quests    map[string]Quest
}

// Result is the output of a single command.
type Result struct {
	Output []string
	Quit   bool // player asked to leave the game
	Combat bool // an encounter is active after the command
}

// String joins the output lines into the response text.
func (r Result) String() string {
	return strings.Join(r.Output, "\n")
}
