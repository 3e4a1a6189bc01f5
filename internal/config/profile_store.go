package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Profile is the persisted form of the connection settings.
type Profile struct {
	AppID    string `json:"app_id"`
	Key      string `json:"key"`
	Secret   string `json:"secret"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Scheme   string `json:"scheme,omitempty"`
	AuthMode string `json:"auth_mode,omitempty"`
}

func ProfilePath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "phoenix", "profile.json"), nil
}

// ResolveProfilePath prefers an explicit path over the default location.
func ResolveProfilePath(explicit string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, nil
	}
	return ProfilePath()
}

func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}

// SaveProfile writes via temp file + rename while holding path.lock, so a
// watcher never observes a half-written profile.
func SaveProfile(path string, profile Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	payload, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func MergeOptionsWithProfile(cli Options, saved Profile) Options {
	if strings.TrimSpace(cli.URL) != "" {
		return cli
	}
	if strings.TrimSpace(cli.AppID) == "" {
		cli.AppID = saved.AppID
	}
	if strings.TrimSpace(cli.Key) == "" {
		cli.Key = saved.Key
	}
	if strings.TrimSpace(cli.Secret) == "" {
		cli.Secret = saved.Secret
	}
	if strings.TrimSpace(cli.Host) == "" {
		cli.Host = saved.Host
	}
	if cli.Port == 0 {
		cli.Port = saved.Port
	}
	if strings.TrimSpace(cli.Scheme) == "" && !cli.Encrypted {
		cli.Scheme = saved.Scheme
	}
	if strings.TrimSpace(cli.AuthMode) == "" {
		cli.AuthMode = saved.AuthMode
	}
	return cli
}

func ProfileFromClient(c Client) Profile {
	return Profile{
		AppID:    strings.TrimSpace(c.AppID),
		Key:      strings.TrimSpace(c.Key),
		Secret:   strings.TrimSpace(c.Secret),
		Host:     c.Host,
		Port:     c.Port,
		Scheme:   c.Scheme,
		AuthMode: string(c.AuthMode),
	}
}
