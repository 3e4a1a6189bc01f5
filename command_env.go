package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"

	"phoenix-rest/internal/channel"
	"phoenix-rest/internal/client"
	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
)

// commandEnv is shared by every subcommand. opts is filled in by the parser
// before Execute runs.
type commandEnv struct {
	ctx  context.Context
	opts *config.Options
	in   io.Reader
	out  io.Writer
}

func newCommandEnv(ctx context.Context, opts *config.Options, in io.Reader, out io.Writer) *commandEnv {
	return &commandEnv{ctx: ctx, opts: opts, in: in, out: out}
}

func (e *commandEnv) newLogger() *logging.Logger {
	logger := logging.New(e.opts.Debug)
	if e.opts.LogToFile {
		if err := logger.EnableFilePersistence(0); err != nil {
			logger.Warn("failed to enable file log persistence", logging.Field("error", err))
		}
	}
	return logger
}

// resolveOptions layers the saved profile under the command line. A missing
// profile is not an error.
func (e *commandEnv) resolveOptions(logger *logging.Logger) (config.Options, string, error) {
	opts := *e.opts
	path, err := config.ResolveProfilePath(opts.Profile)
	if err != nil {
		return config.Options{}, "", err
	}
	saved, err := config.LoadProfile(path)
	switch {
	case err == nil:
		logger.Debug("loaded profile", logging.Field("path", path))
		opts = config.MergeOptionsWithProfile(opts, saved)
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no saved profile", logging.Field("path", path))
	default:
		logger.Warn("ignoring unreadable profile", logging.Field("path", path), logging.Field("error", err))
	}
	return opts, path, nil
}

func (e *commandEnv) clientConfig(logger *logging.Logger) (config.Client, error) {
	opts, _, err := e.resolveOptions(logger)
	if err != nil {
		return config.Client{}, err
	}
	return config.FromOptions(opts)
}

func (e *commandEnv) newClient(logger *logging.Logger) (*client.PhoenixClient, error) {
	cfg, err := e.clientConfig(logger)
	if err != nil {
		return nil, err
	}
	return client.New(nil, cfg, logger)
}

func (e *commandEnv) openChannel(logger *logging.Logger, name string) (*channel.Channel, error) {
	c, err := e.newClient(logger)
	if err != nil {
		return nil, err
	}
	return channel.New(c, channel.NewAuthorizer(c.Config().Credentials(), logger), name)
}

func (e *commandEnv) printJSON(value any) error {
	encoder := json.NewEncoder(e.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
