package sampledata

import (
	"context"
	"fmt"
)

// CacheResolver binds a DatasetDescriptor to a fetch primitive rooted at
// the dataset's cache namespace. It is safe for concurrent use.
type CacheResolver struct {
	// desc is the dataset being resolved.
	desc DatasetDescriptor

	// namespace is <cache root>/cryo_et_sample_data/<name>.
	namespace string

	// fetcher guarantees checksum-valid local files.
	fetcher Fetcher

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// NewCacheResolver derives the registry and cache namespace for desc and
// initializes the fetch primitive. No files are touched until Fetch.
func NewCacheResolver(desc DatasetDescriptor, opts ...Option) (*CacheResolver, error) {
	return newCacheResolver(desc, newOptions(opts))
}

func newCacheResolver(desc DatasetDescriptor, o *options) (*CacheResolver, error) {
	if err := validateName(desc.Name()); err != nil {
		return nil, err
	}

	root, err := cacheRoot(o)
	if err != nil {
		return nil, err
	}
	namespace := namespacePath(root, desc.Name())

	factory := o.fetcherFactory
	if factory == nil {
		factory = func(cfg FetcherConfig) (Fetcher, error) {
			return newFileCache(cfg, o)
		}
	}

	fetcher, err := factory(FetcherConfig{
		Dir:      namespace,
		BaseURL:  desc.BaseURL(),
		Registry: desc.Registry(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing cache for %s: %w", desc.Name(), err)
	}

	return &CacheResolver{
		desc:      desc,
		namespace: namespace,
		fetcher:   fetcher,
		logger:    o.logger,
	}, nil
}

// Descriptor returns the dataset descriptor.
func (r *CacheResolver) Descriptor() DatasetDescriptor {
	return r.desc
}

// Namespace returns the local cache directory for the dataset.
func (r *CacheResolver) Namespace() string {
	return r.namespace
}

// Registry returns the file name to checksum map the fetcher was built with.
func (r *CacheResolver) Registry() map[string]string {
	return r.desc.Registry()
}

// Fetch returns a checksum-valid local path for slot, downloading it if
// needed. Returns an *UnsupportedSlotError if the dataset lacks the slot.
// Fetch errors are returned wrapped, never retried or suppressed here.
func (r *CacheResolver) Fetch(ctx context.Context, slot string) (string, error) {
	fd, ok := r.desc.Slot(slot)
	if !ok {
		return "", &UnsupportedSlotError{Dataset: r.desc.Name(), Slot: slot}
	}

	if r.logger != nil {
		r.logger.Debug("fetching", "dataset", r.desc.Name(), "slot", slot, "file", fd.FileName())
	}

	path, err := r.fetcher.Fetch(ctx, fd.FileName())
	if err != nil {
		return "", fmt.Errorf("fetching %s %s: %w", r.desc.Name(), slot, err)
	}
	return path, nil
}
