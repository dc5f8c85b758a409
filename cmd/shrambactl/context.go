package main

import (
	"errors"
	"os"
	"strings"

	"github.com/erazemk/shramba/internal/client"
)

const defaultServer = "http://localhost:8080"

type commandContext struct {
	serverFlag string
	tokenFlag  string
}

func (c *commandContext) server() string {
	if s := strings.TrimSpace(c.serverFlag); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv("SHRAMBA_SERVER")); s != "" {
		return s
	}
	return defaultServer
}

func (c *commandContext) token() string {
	if t := strings.TrimSpace(c.tokenFlag); t != "" {
		return t
	}
	return strings.TrimSpace(os.Getenv("SHRAMBA_TOKEN"))
}

// anonymous returns a client without a session, for joining.
func (c *commandContext) anonymous() *client.Client {
	return client.New(c.server(), "")
}

// client returns a client for the current session.
func (c *commandContext) client() (*client.Client, error) {
	token := c.token()
	if token == "" {
		return nil, errors.New("not signed in: run 'shrambactl join <group>' and set SHRAMBA_TOKEN or --token")
	}
	return client.New(c.server(), token), nil
}
