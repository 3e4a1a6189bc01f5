package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"phoenix-rest/internal/authserver"
	"phoenix-rest/internal/channel"
	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/runstatus"
)

type Service interface {
	RunContext(ctx context.Context) error
}

// ServeSettings describe where the auth server listens, the token callers
// must present and which profile, if any, it follows for credential rotation.
type ServeSettings struct {
	Addr        string
	Token       string
	ProfilePath string
}

type authService struct {
	opts     config.Options
	settings ServeSettings
	server   *authserver.Server
	logger   *logging.Logger
	hooks    StartHooks
}

func NewService(opts config.Options, settings ServeSettings, logger *logging.Logger) (Service, error) {
	return NewServiceWithHooks(opts, settings, logger, StartHooks{})
}

func NewServiceWithHooks(opts config.Options, settings ServeSettings, logger *logging.Logger, hooks StartHooks) (Service, error) {
	if logger == nil {
		panic("runtime.NewServiceWithHooks: logger must not be nil")
	}
	cfg, err := config.FromOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(settings.Token) == "" {
		return nil, fmt.Errorf("%w: an auth token is required to serve subscription requests", protocol.ErrConfiguration)
	}
	logger.Debug("constructed auth service",
		logging.Field("addr", settings.Addr),
		logging.Field("app_id", cfg.AppID),
		logging.Field("key", cfg.Key),
		logging.Field("profile", settings.ProfilePath),
	)

	policy := authserver.SharedTokenPolicy(strings.TrimSpace(settings.Token))
	server := authserver.New(settings.Addr, channel.NewAuthorizer(cfg.Credentials(), logger), policy, logger)
	return &authService{opts: opts, settings: settings, server: server, logger: logger, hooks: hooks}, nil
}

func (s *authService) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if s.settings.ProfilePath != "" {
		wg.Go(func() {
			err := config.WatchProfile(ctx, s.settings.ProfilePath, s.opts, s.logger, s.applyConfig)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("profile watcher stopped", logging.Field("error", err))
			}
		})
	}

	s.setStatus(runstatus.Listening)
	err := s.server.ListenAndServe(ctx)
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.setStatus(runstatus.StoppedError)
	} else {
		s.setStatus(runstatus.Stopped)
	}
	return err
}

func (s *authService) applyConfig(cfg config.Client) {
	s.server.SetAuthorizer(channel.NewAuthorizer(cfg.Credentials(), s.logger))
	s.setStatus(runstatus.Reloaded)
}

func (s *authService) setStatus(status string) {
	s.logger.Debug("auth service status", logging.Field("status", runstatus.Key(status)))
	if s.hooks.OnStatus != nil {
		s.hooks.OnStatus(status)
	}
}
