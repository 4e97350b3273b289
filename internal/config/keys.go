package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "MARKMIND_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.idle_timeout", typ: kString, env: "MARKMIND_SERVER_IDLE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.IdleTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.IdleTimeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MARKMIND_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "organize.service", typ: kString, env: "MARKMIND_ORGANIZE_SERVICE",
		apply:   func(cfg *Config, v any) { cfg.Organize.Service = v.(string) },
		extract: func(cfg Config) any { return cfg.Organize.Service },
	},
	{
		key: "organize.max_output_tokens", typ: kInt, env: "MARKMIND_ORGANIZE_MAX_OUTPUT_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Organize.MaxOutputTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Organize.MaxOutputTokens },
	},
	{
		key: "organize.default_parent", typ: kString, env: "MARKMIND_ORGANIZE_DEFAULT_PARENT",
		apply:   func(cfg *Config, v any) { cfg.Organize.DefaultParent = v.(string) },
		extract: func(cfg Config) any { return cfg.Organize.DefaultParent },
	},
	{
		key: "models.google", typ: kString, env: "MARKMIND_MODELS_GOOGLE",
		apply:   func(cfg *Config, v any) { cfg.Models.Google = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.Google },
	},
	{
		key: "models.openai", typ: kString, env: "MARKMIND_MODELS_OPENAI",
		apply:   func(cfg *Config, v any) { cfg.Models.OpenAI = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.OpenAI },
	},
	{
		key: "models.anthropic", typ: kString, env: "MARKMIND_MODELS_ANTHROPIC",
		apply:   func(cfg *Config, v any) { cfg.Models.Anthropic = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.Anthropic },
	},
	{
		key: "models.openrouter", typ: kString, env: "MARKMIND_MODELS_OPENROUTER",
		apply:   func(cfg *Config, v any) { cfg.Models.OpenRouter = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.OpenRouter },
	},
	{
		key: "keys.google", typ: kString, env: "MARKMIND_GOOGLE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Keys.Google = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.Google },
	},
	{
		key: "keys.openai", typ: kString, env: "MARKMIND_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Keys.OpenAI = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.OpenAI },
	},
	{
		key: "keys.anthropic", typ: kString, env: "MARKMIND_ANTHROPIC_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Keys.Anthropic = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.Anthropic },
	},
	{
		key: "keys.openrouter", typ: kString, env: "MARKMIND_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Keys.OpenRouter = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.OpenRouter },
	},
	{
		key: "log.level", typ: kString, env: "MARKMIND_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
