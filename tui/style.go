package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleEngaged = lipgloss.NewStyle().
			Background(lipgloss.Color("124")).
			Foreground(lipgloss.Color("231")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeading = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	styleListing = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleCombat = lipgloss.NewStyle().
			Foreground(lipgloss.Color("209"))

	styleReward = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindHeading
	kindListing
	kindDialogue
	kindCombat
	kindReward
	kindSystem
	kindError
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "== ") && strings.HasSuffix(line, " =="):
		return kindHeading
	case strings.HasPrefix(line, "- "),
		strings.HasSuffix(line, ":") && !strings.Contains(line, " "),
		strings.HasPrefix(line, "Paths lead to:"),
		strings.HasPrefix(line, "People here:"),
		strings.HasPrefix(line, "Available quests:"):
		return kindListing
	case strings.HasPrefix(line, "Level up!"),
		strings.HasPrefix(line, "Quest complete:"),
		strings.HasPrefix(line, "You defeated"),
		strings.HasPrefix(line, "You found:"),
		strings.HasPrefix(line, "You receive:"):
		return kindReward
	case strings.HasPrefix(line, "You hit"),
		strings.HasPrefix(line, "You dodge"),
		strings.HasPrefix(line, "You raise your guard"),
		strings.HasPrefix(line, "You attack"),
		strings.HasPrefix(line, "As you travel, you encounter"),
		strings.HasPrefix(line, "The ") && strings.Contains(line, " hits you"),
		strings.HasPrefix(line, "You have been defeated"):
		return kindCombat
	case strings.HasPrefix(line, "I don't understand"),
		strings.HasPrefix(line, "You don't have"),
		strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "You're in the middle of a fight"),
		strings.HasSuffix(line, "but they're not here."):
		return kindError
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindNarration
	}
}

// containsQuotedSpeech checks if a line contains a double-quoted passage
// longer than a few characters, as NPC lines are printed.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '"' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeading:
		return styleHeading.Render(line)
	case kindListing:
		return styleListing.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindCombat:
		return styleCombat.Render(line)
	case kindReward:
		return styleReward.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
