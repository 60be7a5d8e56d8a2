package sampledata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// FileCache is the on-disk fetch primitive: a directory of files, each
// verified against a registry checksum and downloaded from a base URL when
// missing or invalid. It is safe for concurrent use, and concurrent fetches
// from several processes are serialized per file with a lock file.
type FileCache struct {
	// dir is the cache namespace directory.
	dir string

	// registry maps file names to parsed checksums.
	registry map[string]checksum

	// downloader fetches missing files.
	downloader *downloader

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// lockTimeout bounds cross-process lock acquisition.
	lockTimeout time.Duration

	// group coalesces concurrent in-process fetches of the same file.
	group singleflight.Group
}

// Ensure FileCache implements Fetcher.
var _ Fetcher = (*FileCache)(nil)

// NewFileCache creates a FileCache for cfg. Every registry checksum is
// validated up front. The directory is created on first fetch.
func NewFileCache(cfg FetcherConfig, opts ...Option) (*FileCache, error) {
	return newFileCache(cfg, newOptions(opts))
}

func newFileCache(cfg FetcherConfig, o *options) (*FileCache, error) {
	if cfg.Dir == "" {
		return nil, &ValidationError{Field: "dir", Value: cfg.Dir, Reason: "must not be empty"}
	}

	registry := make(map[string]checksum, len(cfg.Registry))
	for fileName, raw := range cfg.Registry {
		if err := validateFileName(fileName); err != nil {
			return nil, err
		}
		sum, err := parseChecksum(raw)
		if err != nil {
			return nil, prefixField("registry."+fileName, err)
		}
		registry[fileName] = sum
	}

	return &FileCache{
		dir:         cfg.Dir,
		registry:    registry,
		downloader:  newDownloader(cfg.BaseURL, o),
		logger:      o.logger,
		lockTimeout: o.lockTimeout,
	}, nil
}

// Dir returns the cache namespace directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Fetch returns the local path of fileName, downloading it first if it is
// missing or fails verification. The returned file always matches its
// registry checksum.
func (c *FileCache) Fetch(ctx context.Context, fileName string) (string, error) {
	sum, ok := c.registry[fileName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotInRegistry, fileName)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The shared fetch outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fileName, func() (any, error) {
		return c.fetch(shared, fileName, sum)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fetch does the work for Fetch. A valid cached file is returned without
// touching the directory; otherwise the download runs under the
// cross-process lock.
func (c *FileCache) fetch(ctx context.Context, fileName string, sum checksum) (string, error) {
	path := filepath.Join(c.dir, fileName)
	if _, err := os.Stat(path); err == nil && verifyFile(path, sum) == nil {
		c.logHit(fileName)
		return path, nil
	}

	if err := ensureDir(c.dir); err != nil {
		return "", err
	}

	lock, err := newFileLock(path+".lock", c.lockTimeout)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create lock: %v", ErrStorage, err)
	}
	if err := lock.Lock(ctx); err != nil {
		lock.Unlock()
		return "", fmt.Errorf("%w: waiting for another download of %s: %w", ErrStorage, fileName, err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		switch err := verifyFile(path, sum); {
		case err == nil:
			c.logHit(fileName)
			return path, nil
		case errors.Is(err, ErrHashMismatch):
			if c.logger != nil {
				c.logger.Warn("cached file failed verification, downloading again", "file", fileName, "checksum", sum.String())
			}
		default:
			return "", err
		}
	}

	if err := c.downloader.download(ctx, fileName, sum, path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *FileCache) logHit(fileName string) {
	if c.logger != nil {
		c.logger.Debug("cache hit", "file", fileName, "dir", c.dir)
	}
}
