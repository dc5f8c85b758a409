package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateRecipe()
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.DB == "" {
		return errors.New("server.db must be set")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must be zero or positive")
	}
	if c.Server.SessionIdle < 1 {
		return errors.New("server.session_idle must be at least one minute")
	}
	return nil
}

func (c *Config) validateRecipe() error {
	if c.Recipe.TimeoutSeconds < 0 {
		return errors.New("recipe.timeout_seconds must be zero or positive")
	}
	if c.Recipe.BaseURL == "" {
		return errors.New("recipe.base_url must be set")
	}
	u, err := url.Parse(c.Recipe.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("recipe.base_url %q must be an http(s) URL", c.Recipe.BaseURL)
	}
	if c.Recipe.Model == "" {
		return errors.New("recipe.model must be set")
	}
	return nil
}
