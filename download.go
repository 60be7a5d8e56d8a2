package sampledata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// downloader streams a remote file to disk while hashing it, and only moves
// it into place once the checksum matches.
type downloader struct {
	// remote resolves and opens file URLs.
	remote *remote

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// progressFn is called as bytes arrive. May be nil.
	progressFn func(Progress)

	// initialBackoff is the delay before the first retry.
	initialBackoff time.Duration
}

// newDownloader creates a downloader for one base URL.
func newDownloader(baseURL string, o *options) *downloader {
	return &downloader{
		remote:         newRemote(baseURL, o),
		logger:         o.logger,
		progressFn:     o.progressFn,
		initialBackoff: o.initialBackoff,
	}
}

// download fetches fileName into dest, retrying temporary failures with
// exponential backoff. A checksum mismatch is not retried.
func (d *downloader) download(ctx context.Context, fileName string, sum checksum, dest string) error {
	backoff := d.initialBackoff
	for attempt := 1; ; attempt++ {
		err := d.downloadOnce(ctx, fileName, sum, dest, attempt)
		if err == nil {
			return nil
		}
		if !isTemporary(err) || attempt > MaxRetries {
			return err
		}

		if d.logger != nil {
			d.logger.Warn("download failed, retrying", "file", fileName, "attempt", attempt, "backoff", backoff, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MaxBackoff)
	}
}

// downloadOnce performs a single download attempt.
func (d *downloader) downloadOnce(ctx context.Context, fileName string, sum checksum, dest string, attempt int) error {
	rawURL, err := d.remote.fileURL(ctx, fileName)
	if err != nil {
		return err
	}

	body, size, err := d.remote.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if d.logger != nil {
		d.logger.Debug("downloading", "file", fileName, "url", rawURL, "size", size, "attempt", attempt)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrStorage, err)
	}

	var reader io.Reader = body
	if d.progressFn != nil {
		var completed int64
		reader = &progressReader{reader: body, onProgress: func(delta int64) {
			completed += delta
			d.progressFn(Progress{
				FileName:       fileName,
				BytesTotal:     size,
				BytesCompleted: completed,
				Attempt:        attempt,
			})
		}}
	}

	h := sum.newHash()
	written, copyErr := io.Copy(io.MultiWriter(tmp, h), reader)
	closeErr := tmp.Close()

	if copyErr != nil {
		os.Remove(tmp.Name())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &temporaryError{fmt.Errorf("reading %s: %w: %v", fileName, ErrNetwork, copyErr)}
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, fileName, closeErr)
	}

	if !sum.matches(h) {
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: downloaded file does not match %s: %w", fileName, sum, ErrHashMismatch)
	}

	if err := commitFile(tmp.Name(), dest); err != nil {
		return err
	}

	if d.progressFn != nil {
		d.progressFn(Progress{
			FileName:       fileName,
			BytesTotal:     size,
			BytesCompleted: written,
			Attempt:        attempt,
			Done:           true,
		})
	}
	if d.logger != nil {
		d.logger.Info("downloaded", "file", fileName, "bytes", written)
	}
	return nil
}
