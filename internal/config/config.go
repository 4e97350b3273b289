package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Organize OrganizeConfig
	Models   ModelsConfig
	Keys     KeysConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        int
	IdleTimeout string
}

type StorageConfig struct {
	DataDir string
}

type OrganizeConfig struct {
	// Service is the default AI service id used by `organize run`
	// when none is given on the command line.
	Service         string
	MaxOutputTokens int
	// DefaultParent is the folder id new folders are created under when
	// the suggested path does not name an existing ancestor. Empty means
	// the root of the tree.
	DefaultParent string
}

type ModelsConfig struct {
	Google     string
	OpenAI     string
	Anthropic  string
	OpenRouter string
}

type KeysConfig struct {
	Google     string
	OpenAI     string
	Anthropic  string
	OpenRouter string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        4200,
			IdleTimeout: "10m",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Organize: OrganizeConfig{
			Service:         "google",
			MaxOutputTokens: 8192,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/markmind/config.json, then applies MARKMIND_*
// environment overrides. API keys are env-only and never persisted to
// the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// IdleTimeout returns the parsed daemon idle timeout. Zero disables
// idle shutdown.
func (c ServerConfig) ParsedIdleTimeout() (time.Duration, error) {
	if c.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid server.idle_timeout %q: %w", c.IdleTimeout, err)
	}
	return d, nil
}

// APIKey returns the configured key for an AI service id. It satisfies
// the credentials source the organize runner consumes.
func (c Config) APIKey(serviceID string) (string, error) {
	var key, env string
	switch serviceID {
	case "google":
		key, env = c.Keys.Google, "MARKMIND_GOOGLE_API_KEY"
	case "openai":
		key, env = c.Keys.OpenAI, "MARKMIND_OPENAI_API_KEY"
	case "anthropic":
		key, env = c.Keys.Anthropic, "MARKMIND_ANTHROPIC_API_KEY"
	case "openrouter":
		key, env = c.Keys.OpenRouter, "MARKMIND_OPENROUTER_API_KEY"
	default:
		return "", fmt.Errorf("unknown AI service %q", serviceID)
	}
	if key == "" {
		return "", fmt.Errorf("no API key configured for %s; set %s", serviceID, env)
	}
	return key, nil
}
