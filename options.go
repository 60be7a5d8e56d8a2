package sampledata

import (
	"net/http"
	"time"
)

// Storage constants.
const (
	// ProductID namespaces every dataset below the cache root.
	ProductID = "cryo_et_sample_data"

	// EnvCacheDir overrides the cache root when set.
	EnvCacheDir = "CRYO_ET_SAMPLE_DATA_DIR"

	// DefaultLockTimeout bounds how long a fetch waits for another process
	// downloading the same file.
	DefaultLockTimeout = 30 * time.Minute
)

// Retry configuration constants for failed HTTP requests.
const (
	// MaxRetries is the maximum number of retry attempts for failed requests.
	MaxRetries = 3

	// InitialBackoff is the initial backoff duration before first retry.
	InitialBackoff = 1 * time.Second

	// MaxBackoff is the maximum backoff duration between retries.
	MaxBackoff = 4 * time.Second
)

// DefaultZenodoAPI is the records API used to resolve "doi:10.5281/zenodo.<id>" base URLs.
const DefaultZenodoAPI = "https://zenodo.org/api"

// Option configures datasets, resolvers and file caches.
type Option func(*options)

// options holds the resolved configuration shared by every constructor.
type options struct {
	// cacheDir overrides the OS cache directory. EnvCacheDir still wins.
	cacheDir string

	// httpClient is used for all downloads and DOI lookups.
	httpClient HTTPClient

	// logger receives diagnostic log messages. May be nil.
	logger Logger

	// progressFn is called while a file is being downloaded.
	progressFn func(Progress)

	// fetcherFactory builds the fetch primitive for a resolver.
	// If nil, an on-disk FileCache is used.
	fetcherFactory FetcherFactory

	// readers resolves reader names in FileRecords.
	readers ReaderRegistry

	// lockTimeout bounds cross-process lock acquisition.
	lockTimeout time.Duration

	// initialBackoff is the first retry delay.
	initialBackoff time.Duration

	// zenodoAPI is the base URL of the Zenodo records API.
	zenodoAPI string
}

// newOptions applies opts over the defaults.
func newOptions(opts []Option) *options {
	o := &options{
		httpClient:     http.DefaultClient,
		readers:        DefaultReaders(),
		lockTimeout:    DefaultLockTimeout,
		initialBackoff: InitialBackoff,
		zenodoAPI:      DefaultZenodoAPI,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCacheDir sets the cache root. Datasets are stored below
// <dir>/cryo_et_sample_data/<name>/. The CRYO_ET_SAMPLE_DATA_DIR
// environment variable takes precedence.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithHTTPClient sets a custom HTTP client for downloads.
// Useful for testing with mock servers or customizing timeouts.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress sets a callback for download progress.
// The callback runs on the goroutine performing the download.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progressFn = fn
	}
}

// WithFetcherFactory replaces the on-disk cache with a custom fetch primitive.
func WithFetcherFactory(factory FetcherFactory) Option {
	return func(o *options) {
		o.fetcherFactory = factory
	}
}

// WithReaders adds named readers used to resolve FileRecord.Reader.
// Entries override the defaults with the same name.
func WithReaders(readers ReaderRegistry) Option {
	return func(o *options) {
		merged := make(ReaderRegistry, len(o.readers)+len(readers))
		for name, r := range o.readers {
			merged[name] = r
		}
		for name, r := range readers {
			merged[name] = r
		}
		o.readers = merged
	}
}

// WithLockTimeout sets how long a fetch waits on the cross-process lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithZenodoAPI overrides the Zenodo records API base URL.
func WithZenodoAPI(baseURL string) Option {
	return func(o *options) {
		o.zenodoAPI = baseURL
	}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus, and other structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}
