package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "DEDIDASH_"
	EnvConfig = "DEDIDASH_CONFIG"
)

// sections are the nested config blocks addressable from env vars.
var sections = []string{"database", "scraper", "server", "report"}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if DEDIDASH_CONFIG is set, or path when non-empty
//  3. env (prefix DEDIDASH_)
func Load(ctx context.Context, path ...string) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	cfgPath := os.Getenv(EnvConfig)
	if len(path) > 0 && path[0] != "" {
		cfgPath = path[0]
	}
	if cfgPath != "" {
		if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, cfgPath, err)
		}
	}

	// DEDIDASH_DATABASE_BACKEND -> database.backend, DEDIDASH_LOG_LEVEL -> log_level.
	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.Roster = NormalizeList(cfg.Roster)
	cfg.RivalryExcluded = NormalizeList(cfg.RivalryExcluded)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if strings.HasPrefix(s, sec+"_") {
			return sec + "." + strings.TrimPrefix(s, sec+"_")
		}
	}
	return s
}

// NormalizeList lowercases logins and splits comma separated values that
// arrive as a single env string.
func NormalizeList(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			p := strings.ToLower(strings.TrimSpace(part))
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
