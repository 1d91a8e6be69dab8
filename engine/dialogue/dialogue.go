// Package dialogue picks what an NPC talks about, based on the player's
// quest state.
package dialogue

import (
	"fmt"

	"github.com/nathoo/wayfarer/types"
)

// Stage is the conversation branch chosen for an NPC.
type Stage int

const (
	Greeting Stage = iota
	Offer          // the NPC hands out a new quest
	Progress       // a quest from this NPC is underway
	TurnIn         // a quest from this NPC is finished and can be rewarded
)

// Topic is the selected branch and the quest it concerns, if any.
type Topic struct {
	Stage Stage
	Quest *types.Quest
}

// Select chooses the topic for npc. quests are the catalog quests the NPC
// gives, in the order they should be considered. Turning in wins over an
// ongoing quest, which wins over a new offer.
func Select(npc *types.NPC, p *types.Player, quests []types.Quest) Topic {
	var progress, offer *types.Quest
	for i := range quests {
		q := &quests[i]
		if q.Giver != npc.ID {
			continue
		}
		qp, started := p.Quests[q.ID]
		switch {
		case started && qp.Status == types.QuestCompleted:
			continue
		case started && Complete(q, p):
			return Topic{Stage: TurnIn, Quest: q}
		case started:
			if progress == nil {
				progress = q
			}
		case p.Level >= q.MinLevel:
			if offer == nil {
				offer = q
			}
		}
	}
	if progress != nil {
		return Topic{Stage: Progress, Quest: progress}
	}
	if offer != nil {
		return Topic{Stage: Offer, Quest: offer}
	}
	return Topic{Stage: Greeting}
}

// Complete reports whether every objective of q is satisfied.
func Complete(q *types.Quest, p *types.Player) bool {
	qp := p.Quests[q.ID]
	for _, o := range q.Objectives {
		if !Satisfied(o, qp, p) {
			return false
		}
	}
	return true
}

// Satisfied reports whether a single objective is met.
func Satisfied(o types.Objective, qp types.QuestProgress, p *types.Player) bool {
	need := o.Count
	if need < 1 {
		need = 1
	}
	if o.Kind == types.ObjectiveCollect {
		return p.Inventory[o.Target] >= need
	}
	return qp.Progress[o.ID] >= need
}

// Line returns the canned text for a topic, falling back to generic lines
// when the NPC has none for that stage.
func Line(npc *types.NPC, t Topic) string {
	d := npc.Dialogue
	switch t.Stage {
	case Offer:
		if d.QuestOffer != "" {
			return d.QuestOffer
		}
		return fmt.Sprintf("%s asks for your help with %q.", npc.Name, t.Quest.Name)
	case Progress:
		if d.QuestActive != "" {
			return d.QuestActive
		}
		return fmt.Sprintf("%s asks how %q is going.", npc.Name, t.Quest.Name)
	case TurnIn:
		if d.QuestComplete != "" {
			return d.QuestComplete
		}
		return fmt.Sprintf("%s thanks you for completing %q.", npc.Name, t.Quest.Name)
	}
	if d.Greeting != "" {
		return d.Greeting
	}
	return fmt.Sprintf("%s nods at you.", npc.Name)
}
