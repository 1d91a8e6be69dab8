// Package config holds the Wayfarer configuration: a JSON file with
// defaults, overridden by environment variables and an optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables that override the file.
const (
	EnvStoreDriver = "WAYFARER_STORE_DRIVER"
	EnvStoreDSN    = "WAYFARER_STORE_DSN"
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvModel       = "WAYFARER_MODEL"
	EnvLogLevel    = "WAYFARER_LOG_LEVEL"
	EnvAddr        = "WAYFARER_ADDR"
	EnvWorldDir    = "WAYFARER_WORLD_DIR"
	EnvSeed        = "WAYFARER_SEED"
)

// Config holds all configuration for the application.
type Config struct {
	Store     StoreConfig     `json:"store"`
	Narrative NarrativeConfig `json:"narrative"`
	Game      GameConfig      `json:"game"`
	Server    ServerConfig    `json:"server"`
	Log       LogConfig       `json:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// memory, sqlite or postgres
	Driver string `json:"driver"`

	// File path for memory and sqlite, connection string for postgres.
	// An empty memory DSN keeps everything in process.
	DSN string `json:"dsn"`
}

// NarrativeConfig configures the text generator.
type NarrativeConfig struct {
	// Read from GEMINI_API_KEY only; never written to the file.
	APIKey string `json:"-"`

	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxTokens      int    `json:"max_tokens"`
	MaxPromptChars int    `json:"max_prompt_chars"`

	// Narrate encounters, combat rounds and loot as well as locations.
	Flavor bool `json:"flavor"`
}

// GameConfig holds game rules that vary per deployment.
type GameConfig struct {
	WorldDir      string `json:"world_dir"`
	StartLocation string `json:"start_location"`
	StartingGold  int    `json:"starting_gold"`

	// danger or flat
	Encounters string `json:"encounters"`

	// 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// debug, info, warn or error
	Level string `json:"level"`

	// Log to this file instead of stderr.
	File string `json:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "./wayfarer.db",
		},
		Narrative: NarrativeConfig{
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 15,
			MaxTokens:      300,
			MaxPromptChars: 4000,
			Flavor:         true,
		},
		Game: GameConfig{
			WorldDir:      "./content/world",
			StartLocation: "village_start",
			StartingGold:  10,
			Encounters:    "danger",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path, writing the defaults there
// when it does not exist, then applies environment overrides. envFiles
// name optional .env files; missing ones are skipped.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cfg, fmt.Errorf("config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return cfg, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func write(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// readEnvFiles parses the .env files that exist without touching the
// process environment.
func readEnvFiles(files []string) (map[string]string, error) {
	out := map[string]string{}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvStoreDriver, &c.Store.Driver)
	str(EnvStoreDSN, &c.Store.DSN)
	str(EnvAPIKey, &c.Narrative.APIKey)
	str(EnvModel, &c.Narrative.Model)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvAddr, &c.Server.Addr)
	str(EnvWorldDir, &c.Game.WorldDir)
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Game.Seed = seed
	}
	return nil
}

// Validate rejects values the rest of the program cannot handle.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		errs = append(errs, errors.New("postgres store needs a dsn"))
	}
	switch c.Game.Encounters {
	case "", "danger", "flat":
	default:
		errs = append(errs, fmt.Errorf("unknown encounter policy %q", c.Game.Encounters))
	}
	if c.Game.WorldDir == "" {
		errs = append(errs, errors.New("game.world_dir is required"))
	}
	if c.Game.StartingGold < 0 {
		errs = append(errs, fmt.Errorf("starting gold %d is negative", c.Game.StartingGold))
	}
	if c.Narrative.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("narrative timeout %d is negative", c.Narrative.TimeoutSeconds))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Timeout returns the narrative call timeout.
func (n NarrativeConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// NewLogger builds a production zap logger at the configured level.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if l.File != "" {
		zc.OutputPaths = []string{l.File}
		zc.ErrorOutputPaths = []string{l.File}
	}
	return zc.Build()
}
