package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/runtime"
)

const serveStopTimeout = 10 * time.Second

type serveCommand struct {
	env *commandEnv

	Listen string `short:"l" long:"listen" env:"PHOENIX_LISTEN" default:"127.0.0.1:8765" description:"Address for the auth endpoint"`
	Token  string `long:"token" env:"PHOENIX_AUTH_TOKEN" description:"Bearer token the application backend must present on auth requests"`
	Watch  bool   `long:"watch" description:"Reload credentials when the saved profile changes"`
}

func (c *serveCommand) Execute(_ []string) error {
	logger := c.env.newLogger()
	defer logger.Close()

	opts, profilePath, err := c.env.resolveOptions(logger)
	if err != nil {
		return err
	}

	lock, lockedByOther, err := acquireServeLock(c.Listen)
	if err != nil {
		return err
	}
	if lockedByOther {
		return fmt.Errorf("an auth server for %s is already running", c.Listen)
	}
	defer func() {
		_ = lock.Release()
	}()

	settings := runtime.ServeSettings{Addr: c.Listen, Token: c.Token}
	if c.Watch {
		if hasInlineCredentials(*c.env.opts) {
			logger.Warn("--watch ignored: credentials were given on the command line or environment")
		} else {
			settings.ProfilePath = profilePath
		}
	}

	exited := make(chan error, 1)
	controller := runtime.NewController(c.env.ctx)
	err = controller.Start(opts, settings, logger, runtime.StartHooks{
		OnStatus: func(status string) {
			logger.Info("auth server "+strings.ToLower(status), logging.Field("addr", c.Listen))
		},
		OnExit: func(err error) { exited <- err },
	})
	if err != nil {
		return err
	}

	select {
	case err = <-exited:
	case <-c.env.ctx.Done():
		if !controller.StopAndWait(serveStopTimeout) {
			return errors.New("auth server did not stop in time")
		}
		err = <-exited
	}
	if err != nil && c.env.ctx.Err() != nil {
		return nil
	}
	return err
}

// hasInlineCredentials reports whether credentials came from flags or the
// environment, which a profile reload must not override.
func hasInlineCredentials(opts config.Options) bool {
	return strings.TrimSpace(opts.URL) != "" || strings.TrimSpace(opts.Key) != "" || strings.TrimSpace(opts.Secret) != ""
}
