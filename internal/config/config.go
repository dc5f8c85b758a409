// Package config loads server settings from defaults, an optional TOML
// file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file read when no path is given and it exists.
const DefaultPath = "shramba.toml"

// Server contains the listen address and storage paths.
type Server struct {
	Addr            string `toml:"addr"`
	DB              string `toml:"db"`
	Log             string `toml:"log"`
	ShutdownTimeout int    `toml:"shutdown_timeout"` // seconds
	SessionIdle     int    `toml:"session_idle"`     // minutes
}

// Recipe contains the chat-completions settings for recipe suggestions.
type Recipe struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config encapsulates all configuration values.
type Config struct {
	Server Server `toml:"server"`
	Recipe Recipe `toml:"recipe"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			DB:              "shramba.sqlite3",
			ShutdownTimeout: 5,
			SessionIdle:     30,
		},
		Recipe: Recipe{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "meta-llama/llama-3.1-8b-instruct:free",
			Title:          "shramba",
			TimeoutSeconds: 60,
		},
	}
}

// Load builds the configuration. An empty path falls back to SHRAMBA_CONFIG
// and then to DefaultPath if that file exists. An explicitly named file
// must exist. envFile is read when it exists; real environment variables
// take precedence over it.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if value, ok := os.LookupEnv("SHRAMBA_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path, explicit = strings.TrimSpace(value), true
		} else {
			path = DefaultPath
		}
	}

	if err := decodeFile(&cfg, path, explicit); err != nil {
		return nil, err
	}

	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookupWith(dotenv)); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(cfg *Config, path string, required bool) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

type lookupFunc func(key string) (string, bool)

func lookupWith(dotenv map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"SHRAMBA_ADDR", &c.Server.Addr},
		{"SHRAMBA_DB", &c.Server.DB},
		{"SHRAMBA_LOG", &c.Server.Log},
		{"OPENROUTER_API_KEY", &c.Recipe.APIKey},
		{"SHRAMBA_RECIPE_URL", &c.Recipe.BaseURL},
		{"SHRAMBA_RECIPE_MODEL", &c.Recipe.Model},
	}
	for _, s := range strs {
		if value, ok := lookup(s.key); ok {
			*s.dst = value
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SHRAMBA_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
		{"SHRAMBA_SESSION_IDLE", &c.Server.SessionIdle},
		{"SHRAMBA_RECIPE_TIMEOUT", &c.Recipe.TimeoutSeconds},
	}
	for _, i := range ints {
		value, ok := lookup(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %q is not a whole number", i.key, value)
		}
		*i.dst = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Server.DB = strings.TrimSpace(c.Server.DB)
	c.Server.Log = strings.TrimSpace(c.Server.Log)
	c.Recipe.APIKey = strings.TrimSpace(c.Recipe.APIKey)
	c.Recipe.BaseURL = strings.TrimSpace(c.Recipe.BaseURL)
	c.Recipe.Model = strings.TrimSpace(c.Recipe.Model)
}
