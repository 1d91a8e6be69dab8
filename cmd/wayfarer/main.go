// Wayfarer is a text-adventure RPG with persistent characters, turn-based
// combat and optional AI narration.
//
// Usage: wayfarer [-config file] [-mode cli|tui|serve] [-player name [-class class]] [-script file]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/cli"
	"github.com/nathoo/wayfarer/config"
	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/journal"
	"github.com/nathoo/wayfarer/loader"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/server"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/store/memstore"
	"github.com/nathoo/wayfarer/store/sqlstore"
	"github.com/nathoo/wayfarer/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	configPath  string
	mode        string
	player      string
	class       string
	script      string
	showVersion bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "./wayfarer.json", "Path to configuration file")
	flag.StringVar(&opts.mode, "mode", "", "cli, tui or serve (default: tui on a terminal when -player is set, cli otherwise)")
	flag.StringVar(&opts.player, "player", "", "Character to play in tui mode")
	flag.StringVar(&opts.class, "class", "", "Class for a new -player character")
	flag.StringVar(&opts.script, "script", "", "Play commands from a file (cli mode)")
	flag.BoolVar(&opts.showVersion, "version", false, "Print the version and exit")
	flag.Parse()

	if opts.showVersion {
		fmt.Printf("wayfarer %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	mode, err := resolveMode(opts)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, ".env")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if mode == "tui" && cfg.Log.File == "" {
		// Keep log lines off the full-screen display.
		cfg.Log.File = "wayfarer.log"
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("set up logger: %w", err)
	}
	defer logger.Sync()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store opened", zap.String("driver", cfg.Store.Driver))

	cat, err := loader.Load(cfg.Game.WorldDir, logger)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	if err := st.SeedCatalog(ctx, cat); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	narrator, closeNarrator := newNarrator(ctx, cfg.Narrative, logger)
	defer closeNarrator()

	rules := engine.DefaultRules()
	rules.Start = cat.World.Start
	if cfg.Game.StartLocation != "" {
		rules.Start = cfg.Game.StartLocation
	}
	if _, ok := cat.Locations[rules.Start]; !ok {
		return fmt.Errorf("start location %q is not in the world", rules.Start)
	}
	rules.StartingGold = cfg.Game.StartingGold
	if rules.Encounters, err = engine.ParseEncounterPolicy(cfg.Game.Encounters); err != nil {
		return err
	}

	eng := engine.New(st, narrator, logger)
	eng.Rules = rules
	if cfg.Game.Seed != 0 {
		eng.RNG = engine.NewRNG(cfg.Game.Seed)
	}
	jr := journal.New(st, logger)

	switch mode {
	case "serve":
		return server.New(eng, logger).ListenAndServe(ctx, cfg.Server.Addr)

	case "tui":
		sess, err := selectSession(ctx, eng, opts.player, opts.class)
		if err != nil {
			return err
		}
		return tui.Run(ctx, eng, sess, cat.World, jr)

	default:
		c := cli.New(eng, cat.World, jr)
		if opts.script != "" {
			f, err := os.Open(opts.script)
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()
			c.In = f
			c.EchoInput = true
		}
		return c.Run(ctx)
	}
}

func resolveMode(opts options) (string, error) {
	switch opts.mode {
	case "cli", "serve":
		return opts.mode, nil
	case "tui":
		if opts.player == "" {
			return "", errors.New("tui mode needs -player")
		}
		return opts.mode, nil
	case "":
		if opts.player != "" && opts.script == "" && isTerminal() {
			return "tui", nil
		}
		return "cli", nil
	}
	return "", fmt.Errorf("unknown mode %q", opts.mode)
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory":
		if sc.DSN == "" {
			return memstore.New(), nil
		}
		st, err := memstore.Open(sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		return st, nil
	default:
		st, err := sqlstore.Open(ctx, sc.Driver, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", sc.Driver, err)
		}
		return st, nil
	}
}

// newNarrator connects to Gemini when an API key is configured and falls
// back to offline text otherwise.
func newNarrator(ctx context.Context, nc config.NarrativeConfig, logger *zap.Logger) (*narrative.Narrator, func()) {
	var gen narrative.Generator
	closeFn := func() {}

	g, err := narrative.NewGemini(ctx, nc.APIKey, nc.Model, int32(nc.MaxTokens))
	switch {
	case errors.Is(err, narrative.ErrUnavailable):
		logger.Info("no API key configured, narration is offline")
	case err != nil:
		logger.Warn("narration unavailable, using offline text", zap.Error(err))
	default:
		gen = g
		closeFn = func() { g.Close() }
		logger.Info("narration enabled", zap.String("model", nc.Model))
	}

	n := narrative.New(gen, logger)
	if nc.TimeoutSeconds > 0 {
		n.Timeout = nc.Timeout()
	}
	if nc.MaxPromptChars > 0 {
		n.MaxPrompt = nc.MaxPromptChars
	}
	n.Flavor = nc.Flavor
	return n, closeFn
}

// selectSession loads the named character, creating it when it does not
// exist and a class was given.
func selectSession(ctx context.Context, eng *engine.Engine, name, class string) (*state.Session, error) {
	sess, err := eng.LoadSession(ctx, name)
	switch {
	case err == nil:
		return sess, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	case class == "":
		return nil, fmt.Errorf("no character named %s (pass -class to create one)", name)
	}
	sess, err = eng.CreatePlayer(ctx, name, class)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return sess, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
