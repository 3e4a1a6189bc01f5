package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"phoenix-rest/internal/logging"
)

// WatchProfile reloads the profile at path whenever it changes and hands the
// rebuilt client configuration to onChange. base supplies everything the
// profile does not carry (timeouts, CLI overrides). It blocks until ctx ends.
func WatchProfile(ctx context.Context, path string, base Options, logger *logging.Logger, onChange func(Client)) error {
	if logger == nil {
		panic("config.WatchProfile: logger must not be nil")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: SaveProfile replaces the file by rename.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch profile directory %s: %w", dir, err)
	}
	target := filepath.Clean(path)
	logger.Debug("watching profile", logging.Field("path", target))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("profile watcher closed")
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			cfg, loadErr := reloadProfile(target, base)
			if loadErr != nil {
				logger.Warn("profile reload failed", logging.Field("path", target), logging.Field("error", loadErr))
				continue
			}
			logger.Info("profile reloaded", logging.Field("app_id", cfg.AppID), logging.Field("key", cfg.Key))
			onChange(cfg)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return errors.New("profile watcher closed")
			}
			logger.Warn("profile watcher error", logging.Field("error", watchErr))
		}
	}
}

func reloadProfile(path string, base Options) (Client, error) {
	profile, err := LoadProfile(path)
	if err != nil {
		return Client{}, err
	}
	// The profile is authoritative for credentials during rotation.
	base.URL, base.AppID, base.Key, base.Secret = "", "", "", ""
	cfg, err := FromOptions(MergeOptionsWithProfile(base, profile))
	if err != nil {
		return Client{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}
