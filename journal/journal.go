// Package journal exports a player's character sheet and choice history
// as a PDF.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// Source resolves catalog ids to display names. store.CatalogStore
// satisfies it.
type Source interface {
	GetLocation(ctx context.Context, id string) (*types.Location, error)
	GetItem(ctx context.Context, id string) (*types.Item, error)
	GetQuest(ctx context.Context, id string) (*types.Quest, error)
}

// Exporter renders journals.
type Exporter struct {
	Source Source
	Now    func() time.Time
	Logger *zap.Logger

	uncompressed bool
}

// New returns an Exporter reading names from src.
func New(src Source, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{Source: src, Now: time.Now, Logger: logger}
}

const (
	pageWidth  = 180.0 // A4 minus 15mm margins
	lineHeight = 6.0
	timeLayout = "2006-01-02 15:04"
)

// WriteFile renders the journal for p to path.
func (x *Exporter) WriteFile(ctx context.Context, path string, p *types.Player) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create journal %s: %w", path, err)
	}
	if err := x.Write(ctx, f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close journal %s: %w", path, err)
	}
	x.Logger.Info("journal exported", zap.String("player", p.Name), zap.String("path", path))
	return nil
}

// Write renders the journal for p to w.
func (x *Exporter) Write(ctx context.Context, w io.Writer, p *types.Player) error {
	names := &resolver{ctx: ctx, src: x.Source}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Journal of "+p.Name, true)
	pdf.SetCreator("wayfarer", true)
	pdf.SetCreationDate(x.now())
	pdf.SetCompression(!x.uncompressed)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(pageWidth, 12, tr("Journal of "+p.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, lineHeight,
		tr(fmt.Sprintf("Level %d %s, written %s", p.Level, p.Class, x.now().Format(timeLayout))),
		"", 1, "L", false, 0, "")
	pdf.Ln(4)

	heading(pdf, "Character")
	loc := names.location(p.Location)
	for _, line := range []string{
		fmt.Sprintf("Health: %d/%d", p.Health, p.MaxHealth),
		fmt.Sprintf("Mana: %d/%d", p.Mana, p.MaxMana),
		fmt.Sprintf("Experience: %d (next level at %d)", p.Experience, p.XPForNextLevel()),
		fmt.Sprintf("Gold: %d", p.Gold),
		fmt.Sprintf("Attack %d, Defense %d, Evasion %d%%", p.Stats.Attack, p.Stats.Defense, p.Stats.Evasion),
		fmt.Sprintf("Strength %d, Dexterity %d, Intelligence %d",
			p.Stats.Strength, p.Stats.Dexterity, p.Stats.Intelligence),
		"Last seen in " + loc,
	} {
		body(pdf, tr(line))
	}

	heading(pdf, "Inventory")
	held := 0
	for _, id := range sortedKeys(p.Inventory) {
		qty := p.Inventory[id]
		if qty <= 0 {
			continue
		}
		held++
		line := fmt.Sprintf("%s (x%d)", names.item(id), qty)
		for _, eq := range p.Equipped {
			if eq == id {
				line += " [equipped]"
				break
			}
		}
		body(pdf, tr(line))
	}
	if held == 0 {
		body(pdf, "Nothing but the clothes on your back.")
	}

	heading(pdf, "Quests")
	if len(p.Quests) == 0 {
		body(pdf, "No quests taken.")
	}
	for _, id := range sortedKeys(p.Quests) {
		body(pdf, tr(fmt.Sprintf("%s: %s", names.quest(id), p.Quests[id].Status)))
	}

	heading(pdf, "Places Visited")
	type visit struct {
		id string
		at time.Time
	}
	visits := make([]visit, 0, len(p.Visited))
	for id, at := range p.Visited {
		visits = append(visits, visit{id, at})
	}
	sort.Slice(visits, func(i, j int) bool {
		if visits[i].at.Equal(visits[j].at) {
			return visits[i].id < visits[j].id
		}
		return visits[i].at.Before(visits[j].at)
	})
	for _, v := range visits {
		body(pdf, tr(fmt.Sprintf("%s  %s", v.at.Format(timeLayout), names.location(v.id))))
	}

	heading(pdf, "Choices")
	if len(p.Choices) == 0 {
		body(pdf, "No choices recorded yet.")
	}
	for _, c := range p.Choices {
		line := fmt.Sprintf("%s  %s: %s", c.At.Format(timeLayout), names.location(c.Location), c.Command)
		if c.Note != "" {
			line += " (" + c.Note + ")"
		}
		body(pdf, tr(line))
	}

	if names.err != nil {
		return fmt.Errorf("journal %s: %w", p.Name, names.err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render journal %s: %w", p.Name, err)
	}
	return nil
}

func (x *Exporter) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(pageWidth, 8, text, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(1)
}

func body(pdf *gofpdf.Fpdf, text string) {
	pdf.MultiCell(pageWidth, lineHeight, text, "", "L", false)
}

// resolver looks up names, falling back to the id for missing entries and
// remembering the first real failure.
type resolver struct {
	ctx context.Context
	src Source
	err error
}

func (r *resolver) location(id string) string {
	if r.src == nil || id == "" {
		return id
	}
	v, err := r.src.GetLocation(r.ctx, id)
	return name(r, id, v, err, func(l *types.Location) string { return l.Name })
}

func (r *resolver) item(id string) string {
	if r.src == nil {
		return id
	}
	v, err := r.src.GetItem(r.ctx, id)
	return name(r, id, v, err, func(it *types.Item) string { return it.Name })
}

func (r *resolver) quest(id string) string {
	if r.src == nil {
		return id
	}
	v, err := r.src.GetQuest(r.ctx, id)
	return name(r, id, v, err, func(q *types.Quest) string { return q.Name })
}

func name[T any](r *resolver, id string, v *T, err error, get func(*T) string) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return id
	case err != nil:
		if r.err == nil {
			r.err = err
		}
		return id
	}
	if n := get(v); n != "" {
		return n
	}
	return id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
