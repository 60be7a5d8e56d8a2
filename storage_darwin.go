//go:build darwin

package sampledata

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root for macOS.
// Returns ~/Library/Caches
func getDefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Caches"), nil
}
