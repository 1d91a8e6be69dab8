// Package cli provides terminal I/O, character selection, and meta-command
// dispatch for the Wayfarer engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/journal"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

const msgSaveFailed = "Something went wrong saving your progress. Please try again."

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine     *engine.Engine
	World      types.World
	Journal    *journal.Exporter
	In         io.Reader
	Out        io.Writer
	JournalDir string
	EchoInput  bool // echo each input line after the prompt (for script playback)
	Logger     *zap.Logger

	session *state.Session
	lastCmd string // for "again"/"g" repeat
	scanner *bufio.Scanner
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, world types.World, jr *journal.Exporter) *CLI {
	return &CLI{
		Engine:     eng,
		World:      world,
		Journal:    jr,
		In:         os.Stdin,
		Out:        os.Stdout,
		JournalDir: ".",
		Logger:     eng.Logger,
	}
}

// Run shows the title, then alternates between character selection and
// play until the player quits or input ends.
func (c *CLI) Run(ctx context.Context) error {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	c.scanner = bufio.NewScanner(c.In)

	if c.World.Title != "" {
		c.printLine("=== " + c.World.Title + " ===")
	}
	if c.World.Intro != "" {
		c.printLine(c.World.Intro)
	}
	c.printLine("")

	for {
		if c.session == nil {
			done, err := c.selectCharacter(ctx)
			if done || err != nil {
				return err
			}
			continue
		}
		if done := c.play(ctx); done {
			return nil
		}
	}
}

// readLine prompts and returns the next meaningful line. ok is false at
// end of input.
func (c *CLI) readLine(prompt string) (line string, ok bool) {
	for {
		c.print(prompt)
		if !c.scanner.Scan() {
			c.printLine("")
			return "", false
		}
		line = strings.TrimSpace(c.scanner.Text())
		// Skip blanks and comment lines (for script files).
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(line)
		}
		return line, true
	}
}

// selectCharacter runs one character-menu command. done reports that the
// program should exit.
func (c *CLI) selectCharacter(ctx context.Context) (done bool, err error) {
	if err := c.listCharacters(ctx); err != nil {
		return true, err
	}
	c.printLine("Commands: new <name> <class>, load <name>, delete <name>, quit")

	for {
		line, ok := c.readLine("menu> ")
		if !ok {
			return true, nil
		}
		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		name := strings.Join(parts[1:], " ")

		switch cmd {
		case "quit", "exit", "/quit", "/exit":
			c.printSystem("Goodbye.")
			return true, nil

		case "list":
			if err := c.listCharacters(ctx); err != nil {
				return true, err
			}

		case "new":
			if len(parts) < 3 {
				c.printLine("Usage: new <name> <class>  (classes: " + classList() + ")")
				continue
			}
			name = strings.Join(parts[1:len(parts)-1], " ")
			s, err := c.Engine.CreatePlayer(ctx, name, parts[len(parts)-1])
			switch {
			case errors.Is(err, engine.ErrInvalidClass):
				c.printLine("Choose a class: " + classList() + ".")
				continue
			case errors.Is(err, engine.ErrInvalidName):
				c.printLine("A name needs between 1 and 32 characters.")
				continue
			case errors.Is(err, engine.ErrNameTaken):
				c.printLine(fmt.Sprintf("There is already a character named %s.", name))
				continue
			case err != nil:
				return true, err
			}
			c.printLine(fmt.Sprintf("Welcome, %s the %s!", s.Player.Name, s.Player.Class))
			c.enter(ctx, s)
			return false, nil

		case "load":
			if name == "" {
				c.printLine("Usage: load <name>")
				continue
			}
			s, err := c.Engine.LoadSession(ctx, name)
			if errors.Is(err, store.ErrNotFound) {
				c.printLine(fmt.Sprintf("No character named %s.", name))
				continue
			}
			if err != nil {
				return true, err
			}
			c.printLine(fmt.Sprintf("Welcome back, %s.", s.Player.Name))
			c.enter(ctx, s)
			return false, nil

		case "delete":
			if name == "" {
				c.printLine("Usage: delete <name>")
				continue
			}
			err := c.Engine.DeletePlayer(ctx, name)
			if errors.Is(err, store.ErrNotFound) {
				c.printLine(fmt.Sprintf("No character named %s.", name))
				continue
			}
			if err != nil {
				return true, err
			}
			c.printSystem(fmt.Sprintf("%s has been deleted.", name))

		default:
			c.printLine("Commands: new <name> <class>, load <name>, delete <name>, list, quit")
		}
	}
}

func (c *CLI) listCharacters(ctx context.Context) error {
	players, err := c.Engine.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("list characters: %w", err)
	}
	if len(players) == 0 {
		c.printLine("No saved characters.")
		return nil
	}
	c.printLine("Saved characters:")
	for _, p := range players {
		c.printLine(fmt.Sprintf("- %s (Level %d %s)", p.Name, p.Level, p.Class))
	}
	return nil
}

// enter starts play for s by describing the current location.
func (c *CLI) enter(ctx context.Context, s *state.Session) {
	c.session = s
	c.lastCmd = ""
	c.step(ctx, "look")
}

// play runs game commands until the player leaves to the menu or quits.
// It returns true when the program should exit.
func (c *CLI) play(ctx context.Context) bool {
	for c.session != nil {
		line, ok := c.readLine("> ")
		if !ok {
			return true
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(line, "/") {
			if c.handleMeta(ctx, line) {
				return true
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(line)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			line = c.lastCmd
		} else {
			c.lastCmd = line
		}

		c.step(ctx, line)
	}
	return false
}

func (c *CLI) step(ctx context.Context, input string) {
	res, err := c.Engine.Step(ctx, c.session, input)
	if err != nil {
		c.Logger.Error("command failed",
			zap.String("player", c.session.Player.Name),
			zap.String("input", input),
			zap.Error(err))
		c.printSystem(msgSaveFailed)
		return
	}
	c.printResult(res)
	if res.Quit {
		c.session = nil
		c.printLine("")
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/journal":
		c.cmdJournal(ctx, arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdJournal(ctx context.Context, file string) {
	if c.Journal == nil {
		c.printSystem("Journal export is not available.")
		return
	}
	p := c.session.Player
	if file == "" {
		file = strings.ToLower(strings.ReplaceAll(p.Name, " ", "_")) + "_journal.pdf"
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.JournalDir, file)
	}
	if err := c.Journal.WriteFile(ctx, path, p); err != nil {
		c.Logger.Error("journal export failed", zap.String("player", p.Name), zap.Error(err))
		c.printSystem("Could not write the journal.")
		return
	}
	c.printSystem(fmt.Sprintf("Journal written to %s.", path))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /journal [file]  Export your journal as a PDF",
		"  /state           Debug: dump current state",
		"  /help            Show this help",
		"  /quit            Exit the game",
		"  again (g)        Repeat your last command",
		"",
		"Type 'help' for game commands, or 'menu' to return to character select.",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.session
	p := s.Player
	c.printSystem(fmt.Sprintf("Player: %s (%s)", p.Name, p.ID))
	c.printSystem(fmt.Sprintf("Location: %s", s.Location.ID))
	c.printSystem(fmt.Sprintf("Health: %d/%d  Gold: %d  XP: %d", p.Health, p.MaxHealth, p.Gold, p.Experience))
	c.printSystem(fmt.Sprintf("Inventory: %v", p.Inventory))
	if len(p.Quests) > 0 {
		c.printSystem(fmt.Sprintf("Quests: %v", p.Quests))
	}
	if s.InCombat() {
		e := s.Combat.Enemy
		c.printSystem(fmt.Sprintf("Combat: %s %d/%d (round %d)", e.ID, e.Health, e.MaxHealth, s.Combat.Round))
	}
	if s.LastCommand != "" {
		c.printSystem(fmt.Sprintf("Last command: %s", s.LastCommand))
	}
}

func classList() string {
	names := make([]string, len(types.Classes))
	for i, cl := range types.Classes {
		names[i] = string(cl)
	}
	return strings.Join(names, ", ")
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
