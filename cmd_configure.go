package main

import (
	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
)

type configureCommand struct {
	env *commandEnv
}

// Execute saves the effective settings (flags, env, .env and any existing
// profile) so later invocations need no credentials on the command line.
func (c *configureCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	opts, path, err := c.env.resolveOptions(logger)
	if err != nil {
		return err
	}
	cfg, err := config.FromOptions(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveProfile(path, config.ProfileFromClient(cfg)); err != nil {
		return err
	}
	logger.Info("profile saved", logging.Field("path", path), logging.Field("app_id", cfg.AppID))
	return nil
}
