package commands

import (
	"fmt"

	"github.com/wolfeidau/orgs/internal/config"
	"github.com/wolfeidau/orgs/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
	EnvFile string
}

// setup installs the process logger and loads configuration.
func setup(globals *Globals) (*config.Config, error) {
	logger.Install(logger.Setup(globals.Debug))

	cfg, err := config.Load(globals.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}
