package sampledata

import (
	"fmt"
	"os"
	"path/filepath"
)

// cacheRoot resolves the directory all dataset namespaces live under.
// Priority: env var > WithCacheDir > platform default.
func cacheRoot(o *options) (string, error) {
	if envDir := os.Getenv(EnvCacheDir); envDir != "" {
		return envDir, nil
	}
	if o.cacheDir != "" {
		return o.cacheDir, nil
	}
	dir, err := getDefaultCacheDir()
	if err != nil {
		return "", fmt.Errorf("%w: failed to get default cache dir: %v", ErrStorage, err)
	}
	return dir, nil
}

// namespacePath returns <root>/cryo_et_sample_data/<name>.
func namespacePath(root, name string) string {
	return filepath.Join(root, ProductID, name)
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorage, path, err)
	}
	return nil
}

// commitFile atomically moves a verified temp file into place.
func commitFile(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrStorage, err)
	}
	return nil
}
