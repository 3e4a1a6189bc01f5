package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

type serveLock struct {
	lock *flock.Flock
}

func (l *serveLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock serve lock: %w", err)
	}
	return nil
}

// acquireServeLock allows one auth server per listen address on this host.
func acquireServeLock(addr string) (*serveLock, bool, error) {
	lockPath, err := serveLockPath(addr)
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}
	f := flock.New(lockPath)
	locked, err := f.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire serve lock: %w", err)
	}
	if !locked {
		return nil, true, nil
	}
	return &serveLock{lock: f}, false, nil
}

func serveLockPath(addr string) (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_", "[", "", "]", "").Replace(addr)
	return filepath.Join(root, "phoenix", "serve-"+name+".lock"), nil
}
