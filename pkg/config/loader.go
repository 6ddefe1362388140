package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads the given dotenv files, if present, and then parses the process
// environment into cfg using its `env` tags. Variables already set in the
// environment win over dotenv values.
//
//	type Config struct {
//	    Port int `env:"HTTP_PORT" envDefault:"8080"`
//	}
func Load(cfg any, dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
