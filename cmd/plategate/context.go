package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"plategate/internal/config"
	"plategate/internal/logger"
)

// commandContext loads configuration once and shares it between commands.
type commandContext struct {
	cfg *config.Config
	log zerolog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.cfg = cfg
	c.log = logger.New(cfg.Environment)
	return cfg, nil
}
