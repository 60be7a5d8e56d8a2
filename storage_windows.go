//go:build windows

package sampledata

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root for Windows.
// Returns %LOCALAPPDATA%
func getDefaultCacheDir() (string, error) {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		localAppData = filepath.Join(home, "AppData", "Local")
	}
	return localAppData, nil
}
