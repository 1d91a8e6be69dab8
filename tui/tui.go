// Package tui is a full-screen terminal front end for one Wayfarer
// session, built on Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/journal"
	"github.com/nathoo/wayfarer/types"
)

const msgSaveFailed = "Something went wrong saving your progress. Please try again."

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for a Wayfarer session.
type Model struct {
	ctx     context.Context
	engine  *engine.Engine
	session *state.Session
	world   types.World
	journal *journal.Exporter
	logger  *zap.Logger

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)
	status   status    // snapshot of the session taken after each step

	width      int
	height     int
	ready      bool
	busy       bool // a step is running; the session belongs to it
	quitting   bool
	lastCmd    string
	journalDir string
}

// stepMsg carries the outcome of one engine step into the Update loop.
type stepMsg struct {
	input  string   // echoed player input (empty for the opening look)
	lines  []string // output lines
	quit   bool
	status status
}

// New creates a TUI model that plays s.
func New(ctx context.Context, eng *engine.Engine, s *state.Session, world types.World, jr *journal.Exporter) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	logger := eng.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		ctx:        ctx,
		engine:     eng,
		session:    s,
		world:      world,
		journal:    jr,
		logger:     logger,
		input:      ti,
		history:    NewHistory(100),
		status:     snapshot(s),
		busy:       true, // until the opening look from Init arrives
		journalDir: ".",
	}
}

// Run starts the Bubble Tea program and blocks until the player quits.
func Run(ctx context.Context, eng *engine.Engine, s *state.Session, world types.World, jr *journal.Exporter) error {
	m := New(ctx, eng, s, world, jr)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the cursor blinking and describes the starting location.
func (m Model) Init() tea.Cmd {
	var intro []string
	if m.world.Title != "" {
		intro = append(intro, "=== "+m.world.Title+" ===", "")
	}
	if m.world.Intro != "" {
		intro = append(intro, m.world.Intro, "")
	}
	return tea.Batch(textinput.Blink, m.stepCmd("", "look", intro))
}

// stepCmd runs one command off the Update loop. Until its stepMsg arrives
// the model holds busy and leaves the session alone.
func (m Model) stepCmd(echo, input string, prefix []string) tea.Cmd {
	eng, s, ctx, logger := m.engine, m.session, m.ctx, m.logger
	return func() tea.Msg {
		lines := append([]string(nil), prefix...)
		res, err := eng.Step(ctx, s, input)
		if err != nil {
			logger.Error("command failed",
				zap.String("player", s.Player.Name),
				zap.String("input", input),
				zap.Error(err))
			lines = append(lines, "["+msgSaveFailed+"]")
		} else {
			lines = append(lines, res.Output...)
		}
		return stepMsg{input: echo, lines: lines, quit: res.Quit, status: snapshot(s)}
	}
}

// Update handles messages (key presses, window resize, step results).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(m.input.Value()); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			next, _ := m.history.Next()
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case stepMsg:
		m.busy = false
		m.status = msg.status
		m = m.appendOutput(msg.input, msg.lines, false)
		if msg.quit {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)

	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(input, output, true)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// "again" / "g" repeats the last game command.
	echo := input
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(input, []string{"Nothing to repeat."}, true)
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	m.busy = true
	return m, m.stepCmd(echo, input, nil)
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(input string, lines []string, system bool) Model {
	if input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + input, isInput: true,
		})
	}

	for _, line := range lines {
		rl := rawLine{text: line, isSystem: system}
		if !system {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Embedded newlines start a fresh line.
func wordWrap(text string, width int) string {
	if strings.Contains(text, "\n") {
		parts := strings.Split(text, "\n")
		for i, p := range parts {
			parts[i] = wordWrap(p, width)
		}
		return strings.Join(parts, "\n")
	}
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/journal":
		return m.cmdJournal(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdJournal(file string) []string {
	if m.journal == nil {
		return []string{"Journal export is not available."}
	}
	p := m.session.Player
	if file == "" {
		file = strings.ToLower(strings.ReplaceAll(p.Name, " ", "_")) + "_journal.pdf"
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.journalDir, file)
	}
	if err := m.journal.WriteFile(m.ctx, path, p); err != nil {
		m.logger.Error("journal export failed", zap.String("player", p.Name), zap.Error(err))
		return []string{"Could not write the journal."}
	}
	return []string{fmt.Sprintf("Journal written to %s.", path)}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /journal [file]  Export your journal as a PDF",
		"  /state           Debug: dump current state",
		"  /help            Show this help",
		"  /quit            Exit the game",
		"  again (g)        Repeat your last command",
		"",
		"Type 'help' for game commands.",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	s := m.session
	p := s.Player
	output := []string{
		fmt.Sprintf("Player: %s (%s)", p.Name, p.ID),
		fmt.Sprintf("Location: %s", s.Location.ID),
		fmt.Sprintf("Health: %d/%d  Gold: %d  XP: %d", p.Health, p.MaxHealth, p.Gold, p.Experience),
		fmt.Sprintf("Inventory: %v", p.Inventory),
	}
	if len(p.Quests) > 0 {
		output = append(output, fmt.Sprintf("Quests: %v", p.Quests))
	}
	if s.InCombat() {
		e := s.Combat.Enemy
		output = append(output, fmt.Sprintf("Combat: %s %d/%d (round %d)", e.ID, e.Health, e.MaxHealth, s.Combat.Round))
	}
	if s.LastCommand != "" {
		output = append(output, fmt.Sprintf("Last command: %s", s.LastCommand))
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
