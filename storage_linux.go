//go:build !darwin && !windows

package sampledata

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root on Linux and other Unixes.
// Uses $XDG_CACHE_HOME if set, otherwise ~/.cache.
func getDefaultCacheDir() (string, error) {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return xdgCache, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}
