package sampledata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// zenodoDOIPrefix is the DOI prefix Zenodo assigns to records.
const zenodoDOIPrefix = "10.5281/zenodo."

// remote resolves file names against a dataset base URL and opens them.
// Supported base URLs are http(s)://, file:// and doi:10.5281/zenodo.<id>/.
type remote struct {
	// baseURL is the dataset base URL as configured.
	baseURL string

	// httpClient is used for downloads and DOI lookups.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// zenodoAPI is the base URL of the Zenodo records API.
	zenodoAPI string

	// mu protects doiFiles.
	mu sync.Mutex

	// doiFiles maps file names to download URLs once a DOI has been resolved.
	doiFiles map[string]string
}

// newRemote creates a remote for baseURL.
func newRemote(baseURL string, o *options) *remote {
	return &remote{
		baseURL:    baseURL,
		httpClient: o.httpClient,
		logger:     o.logger,
		zenodoAPI:  strings.TrimRight(o.zenodoAPI, "/"),
	}
}

// temporaryError marks failures worth retrying.
type temporaryError struct {
	err error
}

func (e *temporaryError) Error() string { return e.err.Error() }

func (e *temporaryError) Unwrap() error { return e.err }

// isTemporary reports whether err is marked as retryable.
func isTemporary(err error) bool {
	var t *temporaryError
	return errors.As(err, &t)
}

// fileURL returns the download URL for fileName.
func (r *remote) fileURL(ctx context.Context, fileName string) (string, error) {
	switch {
	case strings.HasPrefix(r.baseURL, "doi:"):
		files, err := r.resolveDOI(ctx)
		if err != nil {
			return "", err
		}
		u, ok := files[fileName]
		if !ok {
			return "", fmt.Errorf("%s in %s: %w", fileName, r.baseURL, ErrNotFound)
		}
		return u, nil

	case strings.HasPrefix(r.baseURL, "http://"),
		strings.HasPrefix(r.baseURL, "https://"),
		strings.HasPrefix(r.baseURL, "file://"):
		return strings.TrimRight(r.baseURL, "/") + "/" + url.PathEscape(fileName), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, r.baseURL)
	}
}

// zenodoRecord is the subset of a Zenodo record we need.
type zenodoRecord struct {
	Files []zenodoFile `json:"files"`
}

// zenodoFile is one file entry. Older API versions use "filename" and a
// "download" link; current ones use "key" and "self" or "content".
type zenodoFile struct {
	Key      string            `json:"key"`
	Filename string            `json:"filename"`
	Links    map[string]string `json:"links"`
}

// recordID extracts the Zenodo record id from a "doi:" base URL.
func recordID(baseURL string) (string, error) {
	doi := strings.Trim(strings.TrimPrefix(baseURL, "doi:"), "/")
	id, ok := strings.CutPrefix(strings.ToLower(doi), zenodoDOIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: only Zenodo DOIs are supported, got %q", ErrUnsupportedURL, baseURL)
	}
	return id, nil
}

// resolveDOI fetches the Zenodo record once and maps file names to URLs.
func (r *remote) resolveDOI(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doiFiles != nil {
		return r.doiFiles, nil
	}

	id, err := recordID(r.baseURL)
	if err != nil {
		return nil, err
	}

	body, _, err := r.open(ctx, r.zenodoAPI+"/records/"+id)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", r.baseURL, err)
	}
	defer body.Close()

	var rec zenodoRecord
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		return nil, &temporaryError{fmt.Errorf("parsing zenodo record %s: %w: %v", id, ErrNetwork, err)}
	}

	files := make(map[string]string, len(rec.Files))
	for _, f := range rec.Files {
		name := f.Key
		if name == "" {
			name = f.Filename
		}
		for _, rel := range []string{"content", "download", "self"} {
			if link := f.Links[rel]; link != "" {
				files[name] = link
				break
			}
		}
	}

	if r.logger != nil {
		r.logger.Debug("resolved doi", "base_url", r.baseURL, "files", len(files))
	}
	r.doiFiles = files
	return files, nil
}

// open returns a reader for rawURL and its size, or -1 if unknown.
// Network failures and server errors are marked temporary.
func (r *remote) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	if strings.HasPrefix(rawURL, "file://") {
		return openLocal(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, &temporaryError{fmt.Errorf("fetching %s: %w: %v", rawURL, ErrNetwork, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: status %d: %w", rawURL, resp.StatusCode, ErrNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, 0, &temporaryError{fmt.Errorf("fetching %s: status %d: %w", rawURL, resp.StatusCode, ErrNetwork)}
	default:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: status %d: %w", rawURL, resp.StatusCode, ErrNetwork)
	}
}

// openLocal opens a file:// URL.
func openLocal(rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	f, err := os.Open(filepath.FromSlash(u.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("opening %s: %w", rawURL, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return f, info.Size(), nil
}

// progressReader wraps an io.Reader and reports progress as bytes are read.
type progressReader struct {
	reader     io.Reader
	onProgress func(delta int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 && pr.onProgress != nil {
		pr.onProgress(int64(n))
	}
	return
}
