package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer indicates Load was called with a nil target.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")

	// ErrParsingConfig indicates environment parsing failed.
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var defaultEnvLoaded sync.Once

// Load parses environment variables into the tagged struct pointed to by
// v. The default .env file is read once per process before the first
// parse; a missing .env file is not an error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnv reads the given .env files into the process environment before
// any Load call. Existing environment variables take precedence.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}
