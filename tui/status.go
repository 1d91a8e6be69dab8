package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/wayfarer/engine/state"
)

// status is what the status bar shows, copied out of the session so View
// never reads it while a step is running.
type status struct {
	name     string
	level    int
	health   int
	maxHP    int
	gold     int
	location string

	engaged  bool
	enemy    string
	enemyHP  int
	enemyMax int
}

func snapshot(s *state.Session) status {
	if s == nil || s.Player == nil {
		return status{}
	}
	p := s.Player
	st := status{
		name:   p.Name,
		level:  p.Level,
		health: p.Health,
		maxHP:  p.MaxHealth,
		gold:   p.Gold,
	}
	if s.Location != nil {
		st.location = s.Location.Name
	}
	if s.InCombat() {
		e := s.Combat.Enemy
		st.engaged = true
		st.enemy = e.Name
		st.enemyHP = e.Health
		st.enemyMax = e.MaxHealth
	}
	return st
}

// renderStatusBar produces a full-width inverted status line showing the
// character's vitals on the left and where they are on the right.
func (m Model) renderStatusBar() string {
	st := m.status

	left := fmt.Sprintf(" %s | Lv %d | HP %d/%d | Gold %d", st.name, st.level, st.health, st.maxHP, st.gold)
	right := st.location + " "

	var engaged string
	if st.engaged {
		label := fmt.Sprintf(" ENGAGED: %s %d/%d ", st.enemy, st.enemyHP, st.enemyMax)
		if lipgloss.Width(left)+len(label)+lipgloss.Width(right)+2 > m.width {
			label = " ENGAGED "
		}
		engaged = styleEngaged.Render(label)
		right = " " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(engaged) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return styleStatusBar.Render(left+strings.Repeat(" ", gap)) + engaged + styleStatusBar.Render(right)
}
