// Package credential resolves the Odds API key from the places a user may
// keep it: a config value, an environment variable, a plain text file.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samvad-hq/oddsapi-go/internal/config"
)

// EnvAPIKey is the environment variable consulted by FromConfig.
const EnvAPIKey = "ODDS_API_KEY"

// ErrNotFound means no source produced a non-empty key.
var ErrNotFound = errors.New("credential: api key not found")

// Source yields an API key. A source with nothing to offer returns ("", nil);
// errors are reserved for real failures such as an unreadable file.
type Source interface {
	Load() (string, error)
}

// Static always returns the same value.
type Static string

func (s Static) Load() (string, error) { return strings.TrimSpace(string(s)), nil }

// Env reads an environment variable.
type Env string

func (e Env) Load() (string, error) { return strings.TrimSpace(os.Getenv(string(e))), nil }

// File reads a text file holding only the key. A missing file is not an error.
type File string

func (f File) Load() (string, error) {
	path := strings.TrimSpace(string(f))
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read api key file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Chain tries each source in order and returns the first non-empty key.
type Chain []Source

func (c Chain) Load() (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		key, err := src.Load()
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", ErrNotFound
}

// FromConfig builds the standard lookup order: explicit config value (flag or
// env via viper), ODDS_API_KEY, then the key file.
func FromConfig(cfg *config.Config) Source {
	if cfg == nil {
		return Chain{Env(EnvAPIKey)}
	}
	return Chain{Static(cfg.APIKey), Env(EnvAPIKey), File(cfg.APIKeyFile)}
}

// Resolve loads the key once from src.
func Resolve(src Source) (string, error) {
	if src == nil {
		return "", ErrNotFound
	}
	key, err := src.Load()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}
