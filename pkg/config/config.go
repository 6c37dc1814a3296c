// Package config loads bleurgh.toml and builds the process logger.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when no config file is named explicitly. A missing
// default file is not an error.
const DefaultFile = "bleurgh.toml"

// EnvFile names the config file when no --config flag is given.
const EnvFile = "BLEURGH_CONFIG"

type Configuration struct {
	EntryPoint string `toml:"entry_point"`
	Log        Log    `toml:"log"`
	Run        Run    `toml:"run"`
	Index      Index  `toml:"index"`
}

type Log struct {
	Level string `toml:"level"` // trace, debug, info, warn, error, none
	File  string `toml:"file"`  // empty means stderr
}

type Run struct {
	MaxSteps int `toml:"max_steps"`
}

type Index struct {
	DSN string `toml:"dsn"` // empty disables the symbol index
}

// Default returns the built-in configuration.
func Default() Configuration {
	return Configuration{
		EntryPoint: "bleurgh_main",
		Log:        Log{Level: "error"},
		Run:        Run{MaxSteps: 1_000_000},
	}
}

// Load reads path over the defaults. An empty path falls back to
// $BLEURGH_CONFIG and then to DefaultFile; only an explicitly named file has
// to exist.
func Load(path string) (Configuration, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvFile); env != "" {
			path = env
			explicit = true
		} else {
			path = DefaultFile
		}
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Default(), fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Configuration) Validate() error {
	if c.EntryPoint == "" {
		return errors.New("entry_point must not be empty")
	}
	if !ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Run.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.Run.MaxSteps)
	}
	return nil
}
