package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/journal"
	"github.com/nathoo/wayfarer/store/memstore"
	"github.com/nathoo/wayfarer/store/storetest"
	"github.com/nathoo/wayfarer/types"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"== Village Square ==", kindHeading},
		{"Paths lead to:", kindListing},
		{"- Forest Path", kindListing},
		{"Inventory:", kindListing},
		{`Village Elder says: "Welcome to our village, traveler."`, kindDialogue},
		{"You hit the Forest Wolf for 5 damage.", kindCombat},
		{"The Forest Wolf hits you for 1 damage.", kindCombat},
		{"As you travel, you encounter a Forest Wolf!", kindCombat},
		{"Level up! You are now level 2.", kindReward},
		{"Quest complete: Rat Problem", kindReward},
		{"You found: Wolf Pelt", kindReward},
		{"[Journal written to aria.pdf.]", kindSystem},
		{"I don't understand that command. Type 'help' for a list of commands.", kindError},
		{"You prepare to fight rat, but they're not here.", kindError},
		{"You don't have any active quests.", kindError},
		{"A quiet square with a stone well.", kindNarration},
		{"The Rusty Sword is already equipped.", kindNarration},
		{"", kindNarration},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestContainsQuotedSpeech(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`"Have you dealt with those rats yet?"`, true},
		{`A sign reads "Inn".`, false}, // short quote segment
		{"No quotes here.", false},
		{`"Hi"`, false},
		{`The hunter mutters "wolves again, always wolves."`, true},
	}
	for _, tt := range tests {
		got := containsQuotedSpeech(tt.line)
		if got != tt.want {
			t.Errorf("containsQuotedSpeech(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"A narrow trail winds under tall pines toward the hills.", 30,
			"A narrow trail winds under\ntall pines toward the hills."},
		{"", 80, ""},
		{"a b c d e", 3, "a b\nc d\ne"},
		{"a b\nc d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go forest path")
	h.Push("attack wolf")

	for _, want := range []string{"attack wolf", "go forest path", "look", "look"} {
		prev, ok := h.Prev("")
		if !ok || prev != want {
			t.Errorf("expected %q, got %q (ok=%v)", want, prev, ok)
		}
	}
}

func TestHistory_NextRestoresDraft(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("status")

	h.Prev("talk el") // "status"
	h.Prev("")        // "look"

	next, ok := h.Next()
	if !ok || next != "status" {
		t.Errorf("expected 'status', got %q (ok=%v)", next, ok)
	}
	next, ok = h.Next()
	if ok || next != "talk el" {
		t.Errorf("expected draft 'talk el' past the newest entry, got %q (ok=%v)", next, ok)
	}

	// Navigation starts over from the newest entry.
	if prev, _ := h.Prev(""); prev != "status" {
		t.Errorf("expected 'status' after navigation ended, got %q", prev)
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev("x"); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSizeAndDuplicates(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("b") // skipped
	h.Push("c") // "a" evicted

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	if prev, _ := h.Prev(""); prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	if prev, _ := h.Prev(""); prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	if err := st.SeedCatalog(ctx, storetest.Catalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	eng := engine.New(st, nil, nil)
	eng.RNG = engine.NewRNG(1)
	s, err := eng.CreatePlayer(ctx, "Aria", "warrior")
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	world := types.World{Title: "Test World", Start: "village_start", Intro: "Welcome to the test."}
	m := New(ctx, eng, s, world, journal.New(st, nil))
	m.journalDir = t.TempDir()

	// Deliver the opening look that Init would schedule.
	next, _ := m.Update(m.stepCmd("", "look", nil)())
	return next.(Model)
}

func joinedOutput(m Model) string {
	var lines []string
	for _, rl := range m.rawLines {
		lines = append(lines, rl.text)
	}
	return strings.Join(lines, "\n")
}

func TestEnter_RunsCommandOffLoop(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("status")

	next, cmd := m.handleEnter()
	m = next.(Model)
	if !m.busy || cmd == nil {
		t.Fatal("expected a pending step")
	}

	// Input while the step runs is ignored.
	m.input.SetValue("look")
	if _, again := m.handleEnter(); again != nil {
		t.Error("expected no command while busy")
	}

	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.busy {
		t.Error("expected busy cleared after the step")
	}
	out := joinedOutput(m)
	if !strings.Contains(out, "> status") || !strings.Contains(out, "Character: Aria (Level 1 warrior)") {
		t.Errorf("expected echoed input and status, got:\n%s", out)
	}
}

func TestEnter_Again(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("g")
	next, cmd := m.handleEnter()
	m = next.(Model)
	if cmd != nil {
		t.Error("expected no step without a previous command")
	}
	if !strings.Contains(joinedOutput(m), "Nothing to repeat.") {
		t.Error("expected 'Nothing to repeat.'")
	}
}

func TestNew_WaitsForOpeningLook(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.SeedCatalog(ctx, storetest.Catalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	eng := engine.New(st, nil, nil)
	s, err := eng.CreatePlayer(ctx, "Aria", "warrior")
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	m := New(ctx, eng, s, types.World{}, nil)
	m.input.SetValue("status")
	if _, cmd := m.handleEnter(); cmd != nil {
		t.Error("expected input to wait for the opening look")
	}
}

func TestInit_DescribesStart(t *testing.T) {
	m := newTestModel(t)
	msg := m.stepCmd("", "look", []string{"=== Test World ==="})().(stepMsg)

	joined := strings.Join(msg.lines, "\n")
	if !strings.HasPrefix(joined, "=== Test World ===") {
		t.Errorf("expected the title first, got:\n%s", joined)
	}
	if !strings.Contains(joined, "== Village Square ==") {
		t.Errorf("expected the starting location, got:\n%s", joined)
	}
	if msg.status.location != "Village Square" {
		t.Errorf("status location = %q, want Village Square", msg.status.location)
	}
}

func TestStep_QuitEndsProgram(t *testing.T) {
	m := newTestModel(t)
	msg := m.stepCmd("menu", "menu", nil)().(stepMsg)
	if !msg.quit {
		t.Fatal("expected menu to end the session")
	}
	next, _ := m.Update(msg)
	if !next.(Model).quitting {
		t.Error("expected the model to quit")
	}
}

func TestStatusBar(t *testing.T) {
	m := newTestModel(t)
	m.width = 120

	bar := m.renderStatusBar()
	for _, want := range []string{"Aria", "Lv 1", "HP 100/100", "Gold 10", "Village Square"} {
		if !strings.Contains(bar, want) {
			t.Errorf("expected %q in status bar %q", want, bar)
		}
	}
	if strings.Contains(bar, "ENGAGED") {
		t.Error("not in combat yet")
	}

	m.session.StartCombat(storetest.Catalog().Enemies["wolf"])
	m.status = snapshot(m.session)
	bar = m.renderStatusBar()
	if !strings.Contains(bar, "ENGAGED: Wolf 30/30") {
		t.Errorf("expected engaged marker, got %q", bar)
	}

	m.width = 40
	if bar = m.renderStatusBar(); !strings.Contains(bar, "ENGAGED") {
		t.Errorf("expected short engaged marker on a narrow terminal, got %q", bar)
	}
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t)
	for _, cmd := range []string{"/quit", "/exit"} {
		if _, quit := m.handleMeta(cmd); !quit {
			t.Errorf("expected quit=true for %s", cmd)
		}
	}
}

func TestHandleMeta_Journal(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/journal")
	if quit {
		t.Error("journal should not quit")
	}
	path := filepath.Join(m.journalDir, "aria_journal.pdf")
	if len(output) == 0 || output[0] != "Journal written to "+path+"." {
		t.Errorf("expected journal confirmation, got %v", output)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("journal not written: %v", err)
	}

	m.journal = nil
	output, _ = m.handleMeta("/journal")
	if len(output) == 0 || !strings.Contains(output[0], "not available") {
		t.Errorf("expected unavailable message, got %v", output)
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t)
	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}
	joined := strings.Join(output, "\n")
	for _, expected := range []string{"/journal", "/state", "/quit", "again (g)"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newTestModel(t)
	output, _ := m.handleMeta("/state")
	joined := strings.Join(output, "\n")
	if !strings.Contains(joined, "Location: village_start") {
		t.Error("expected location in state output")
	}
	if !strings.Contains(joined, "Health: 100/100  Gold: 10  XP: 0") {
		t.Errorf("expected vitals in state output, got:\n%s", joined)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t)
	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}
