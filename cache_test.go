package sampledata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newFileServer serves files by name and counts every request.
func newFileServer(t *testing.T, files map[string][]byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		data, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// newTestCache builds a FileCache in a temp dir with millisecond backoff.
func newTestCache(t *testing.T, baseURL string, registry map[string]string, opts ...Option) *FileCache {
	t.Helper()
	opts = append([]Option{withInitialBackoff(time.Millisecond)}, opts...)
	c, err := NewFileCache(FetcherConfig{Dir: t.TempDir(), BaseURL: baseURL, Registry: registry}, opts...)
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	return c
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, "*.part"))
	if len(matches) > 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFileCacheFetch(t *testing.T) {
	data := []byte("tomogram bytes")
	srv, hits := newFileServer(t, map[string][]byte{"tomo.mrc": data})
	c := newTestCache(t, srv.URL+"/", map[string]string{"tomo.mrc": md5Of(data)})
	ctx := context.Background()

	path, err := c.Fetch(ctx, "tomo.mrc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if path != filepath.Join(c.Dir(), "tomo.mrc") {
		t.Errorf("Fetch() = %q, want file in %q", path, c.Dir())
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}

	again, err := c.Fetch(ctx, "tomo.mrc")
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if again != path {
		t.Errorf("second Fetch() = %q, want %q", again, path)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	assertNoPartFiles(t, c.Dir())
}

func TestFileCacheReplacesCorruptFile(t *testing.T) {
	data := []byte("good data")
	srv, hits := newFileServer(t, map[string][]byte{"tomo.mrc": data})
	logger := &testLogger{}
	c := newTestCache(t, srv.URL, map[string]string{"tomo.mrc": sha256Of(data)}, WithLogger(logger))

	if err := os.WriteFile(filepath.Join(c.Dir(), "tomo.mrc"), []byte("corrupt"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	path, err := c.Fetch(context.Background(), "tomo.mrc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	if logger.count("WARN") != 1 {
		t.Errorf("expected one warning, got messages %v", logger.messages)
	}
}

func TestFileCacheUsesValidExistingFile(t *testing.T) {
	data := []byte("already here")
	srv, hits := newFileServer(t, nil)
	c := newTestCache(t, srv.URL, map[string]string{"tomo.mrc": md5Of(data)})

	if err := os.WriteFile(filepath.Join(c.Dir(), "tomo.mrc"), data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := c.Fetch(context.Background(), "tomo.mrc"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hits = %d, want 0", n)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "tomo.mrc.lock")); !os.IsNotExist(err) {
		t.Errorf("cache hit created a lock file: %v", err)
	}
}

func TestFileCacheReadOnlyHit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	data := []byte("shared read-only cache")
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tomo.mrc"), data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	srv, hits := newFileServer(t, nil)
	c, err := NewFileCache(FetcherConfig{Dir: dir, BaseURL: srv.URL, Registry: map[string]string{"tomo.mrc": md5Of(data)}})
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}

	path, err := c.Fetch(context.Background(), "tomo.mrc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if path != filepath.Join(dir, "tomo.mrc") {
		t.Errorf("Fetch() = %q, want file in %q", path, dir)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hits = %d, want 0", n)
	}
}

func TestFileCacheHashMismatch(t *testing.T) {
	srv, hits := newFileServer(t, map[string][]byte{"tomo.mrc": []byte("tampered")})
	c := newTestCache(t, srv.URL, map[string]string{"tomo.mrc": md5Of([]byte("expected"))})

	_, err := c.Fetch(context.Background(), "tomo.mrc")
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("Fetch() error = %v, want ErrHashMismatch", err)
	}
	if _, statErr := os.Stat(filepath.Join(c.Dir(), "tomo.mrc")); !os.IsNotExist(statErr) {
		t.Errorf("mismatching file was left in the cache: %v", statErr)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1 (mismatch must not be retried)", n)
	}
	assertNoPartFiles(t, c.Dir())
}

func TestFileCacheRetries(t *testing.T) {
	data := []byte("eventually")

	tests := []struct {
		name     string
		failures int32
		status   int
		wantErr  error
		wantHits int32
	}{
		{"recovers after server errors", 2, http.StatusInternalServerError, nil, 3},
		{"recovers after rate limiting", 1, http.StatusTooManyRequests, nil, 2},
		{"gives up after max retries", 100, http.StatusBadGateway, ErrNetwork, MaxRetries + 1},
		{"not found is not retried", 100, http.StatusNotFound, ErrNotFound, 1},
		{"client error is not retried", 100, http.StatusForbidden, ErrNetwork, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				w.Write(data)
			}))
			defer srv.Close()

			c := newTestCache(t, srv.URL, map[string]string{"f.bin": md5Of(data)})
			_, err := c.Fetch(context.Background(), "f.bin")

			if tt.wantErr == nil && err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
			if n := hits.Load(); n != tt.wantHits {
				t.Errorf("server hits = %d, want %d", n, tt.wantHits)
			}
		})
	}
}

func TestFileCacheNotInRegistry(t *testing.T) {
	srv, hits := newFileServer(t, map[string][]byte{"other.bin": []byte("x")})
	c := newTestCache(t, srv.URL, map[string]string{"f.bin": md5Of([]byte("x"))})

	_, err := c.Fetch(context.Background(), "other.bin")
	if !errors.Is(err, ErrNotInRegistry) {
		t.Errorf("Fetch() error = %v, want ErrNotInRegistry", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hits = %d, want 0", n)
	}
}

func TestFileCacheProgress(t *testing.T) {
	data := []byte(strings.Repeat("x", 64*1024))
	srv, _ := newFileServer(t, map[string][]byte{"big.bin": data})

	var mu sync.Mutex
	var reports []Progress
	c := newTestCache(t, srv.URL, map[string]string{"big.bin": sha256Of(data)}, WithProgress(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, p)
	}))

	if _, err := c.Fetch(context.Background(), "big.bin"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) < 2 {
		t.Fatalf("got %d progress reports, want at least 2", len(reports))
	}
	last := reports[len(reports)-1]
	if !last.Done {
		t.Error("last report Done = false")
	}
	if last.FileName != "big.bin" || last.Attempt != 1 {
		t.Errorf("last report = %+v", last)
	}
	if last.BytesCompleted != int64(len(data)) || last.BytesTotal != int64(len(data)) {
		t.Errorf("last report bytes = %d/%d, want %d", last.BytesCompleted, last.BytesTotal, len(data))
	}
	for i := 1; i < len(reports); i++ {
		if reports[i].BytesCompleted < reports[i-1].BytesCompleted {
			t.Errorf("progress went backwards at report %d", i)
		}
	}
}

func TestFileCacheFileURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file URLs built from Windows paths need a drive-letter form")
	}

	src := t.TempDir()
	data := []byte("local copy")
	if err := os.WriteFile(filepath.Join(src, "local file.bin"), data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c := newTestCache(t, "file://"+src+"/", map[string]string{"local file.bin": md5Of(data)})
	path, err := c.Fetch(context.Background(), "local file.bin")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}

	t.Run("missing local file", func(t *testing.T) {
		c := newTestCache(t, "file://"+src+"/", map[string]string{"missing.bin": md5Of(data)})
		if _, err := c.Fetch(context.Background(), "missing.bin"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFileCacheUnsupportedURL(t *testing.T) {
	c := newTestCache(t, "ftp://example.com/", map[string]string{"f.bin": md5Of(nil)})
	if _, err := c.Fetch(context.Background(), "f.bin"); !errors.Is(err, ErrUnsupportedURL) {
		t.Errorf("Fetch() error = %v, want ErrUnsupportedURL", err)
	}
}

func TestFileCacheConcurrentFetch(t *testing.T) {
	data := []byte("shared")
	srv, hits := newFileServer(t, map[string][]byte{"shared.bin": data})
	c := newTestCache(t, srv.URL, map[string]string{"shared.bin": md5Of(data)})

	const workers = 8
	var wg sync.WaitGroup
	paths := make([]string, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], errs[i] = c.Fetch(context.Background(), "shared.bin")
		}()
	}
	wg.Wait()

	for i := range workers {
		if errs[i] != nil {
			t.Errorf("worker %d error = %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Errorf("worker %d path = %q, want %q", i, paths[i], paths[0])
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFileCacheCancelled(t *testing.T) {
	data := []byte("never")
	srv, hits := newFileServer(t, map[string][]byte{"f.bin": data})
	c := newTestCache(t, srv.URL, map[string]string{"f.bin": md5Of(data)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Fetch(ctx, "f.bin"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hits = %d, want 0", n)
	}
}

func TestFileCacheCancelledCallerLeavesOthers(t *testing.T) {
	data := []byte("slow tomogram")
	requested := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		once.Do(func() { close(requested) })
		<-release
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})
	c := newTestCache(t, srv.URL, map[string]string{"tomo.mrc": md5Of(data)})

	type result struct {
		path string
		err  error
	}
	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	resA := make(chan result, 1)
	go func() {
		path, err := c.Fetch(ctxA, "tomo.mrc")
		resA <- result{path, err}
	}()
	<-requested

	resB := make(chan result, 1)
	go func() {
		path, err := c.Fetch(context.Background(), "tomo.mrc")
		resB <- result{path, err}
	}()
	// Let B join the in-flight download before A leaves.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if a := <-resA; !errors.Is(a.err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", a.err)
	}

	close(release)
	b := <-resB
	if b.err != nil {
		t.Fatalf("other caller error = %v", b.err)
	}
	got, err := os.ReadFile(b.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	assertNoPartFiles(t, c.Dir())
}

func TestNewFileCacheInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  FetcherConfig
	}{
		{"empty dir", FetcherConfig{Registry: map[string]string{"a": hivChecksum}}},
		{"bad checksum", FetcherConfig{Dir: "x", Registry: map[string]string{"a": "md5:nothex"}}},
		{"bad file name", FetcherConfig{Dir: "x", Registry: map[string]string{"../a": hivChecksum}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFileCache(tt.cfg); !errors.Is(err, ErrValidation) {
				t.Errorf("NewFileCache() error = %v, want ErrValidation", err)
			}
		})
	}
}
