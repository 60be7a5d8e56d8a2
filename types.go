package sampledata

import "context"

// Well-known slot names.
const (
	// SlotTomogram is the reconstructed tomogram volume.
	SlotTomogram = "tomogram"

	// SlotLabel is the segmentation label volume.
	SlotLabel = "label"
)

// Fetcher is the content-verified fetch primitive a CacheResolver delegates to.
// Implementations must only return paths whose contents match the registry
// checksum for fileName.
type Fetcher interface {
	// Fetch guarantees fileName is present and checksum-valid locally,
	// downloading it if needed, and returns its absolute path.
	Fetch(ctx context.Context, fileName string) (string, error)
}

// FetcherConfig is what a fetch primitive is initialized with.
type FetcherConfig struct {
	// Dir is the local cache namespace for one dataset.
	Dir string

	// BaseURL is prepended to file names to form download URLs.
	BaseURL string

	// Registry maps file names to "algorithm:hex" checksums.
	Registry map[string]string
}

// FetcherFactory builds a Fetcher for a dataset namespace.
type FetcherFactory func(cfg FetcherConfig) (Fetcher, error)

// Progress reports download progress for a single file.
type Progress struct {
	// FileName is the file being downloaded.
	FileName string

	// BytesTotal is the expected size, or -1 if the server did not say.
	BytesTotal int64

	// BytesCompleted is the number of bytes received so far in this attempt.
	BytesCompleted int64

	// Attempt is the 1-based download attempt.
	Attempt int

	// Done is set on the final report after the file was verified.
	Done bool
}
