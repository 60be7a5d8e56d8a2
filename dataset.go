package sampledata

import (
	"context"
	"fmt"
)

// Dataset is a lazily downloaded, cached sample dataset. Each accessor
// fetches the slot's file (downloading only on a cache miss) and decodes
// it with the slot's Reader. Decoded values are not memoized.
// All methods are safe for concurrent use.
type Dataset struct {
	desc     DatasetDescriptor
	resolver *CacheResolver
}

// New validates a dataset definition and binds it to a cache resolver.
func New(name, author, description, baseURL string, slots map[string]SlotInput, opts ...Option) (*Dataset, error) {
	o := newOptions(opts)
	desc, err := NewDatasetDescriptor(name, author, description, baseURL, slots, o.readers)
	if err != nil {
		return nil, err
	}
	return newDataset(desc, o)
}

// FromConfig builds a Dataset from a flat configuration.
func FromConfig(cfg DatasetConfig, opts ...Option) (*Dataset, error) {
	o := newOptions(opts)
	desc, err := DescriptorFromConfig(cfg, o.readers)
	if err != nil {
		return nil, err
	}
	return newDataset(desc, o)
}

// NewDataset binds an existing descriptor to a cache resolver.
func NewDataset(desc DatasetDescriptor, opts ...Option) (*Dataset, error) {
	return newDataset(desc, newOptions(opts))
}

func newDataset(desc DatasetDescriptor, o *options) (*Dataset, error) {
	resolver, err := newCacheResolver(desc, o)
	if err != nil {
		return nil, err
	}
	return &Dataset{desc: desc, resolver: resolver}, nil
}

// Name returns the dataset identity.
func (d *Dataset) Name() string { return d.desc.Name() }

// Author returns the dataset author(s).
func (d *Dataset) Author() string { return d.desc.Author() }

// Description returns the free-text description.
func (d *Dataset) Description() string { return d.desc.Description() }

// BaseURL returns the URL file names are resolved against.
func (d *Dataset) BaseURL() string { return d.desc.BaseURL() }

// Descriptor returns the underlying descriptor.
func (d *Dataset) Descriptor() DatasetDescriptor { return d.desc }

// Resolver returns the cache resolver.
func (d *Dataset) Resolver() *CacheResolver { return d.resolver }

// Tomogram returns the decoded tomogram.
func (d *Dataset) Tomogram(ctx context.Context) (any, error) {
	return d.Data(ctx, SlotTomogram)
}

// Label returns the decoded label volume.
func (d *Dataset) Label(ctx context.Context) (any, error) {
	return d.Data(ctx, SlotLabel)
}

// Path returns the checksum-valid local path for slot.
func (d *Dataset) Path(ctx context.Context, slot string) (string, error) {
	return d.resolver.Fetch(ctx, slot)
}

// Data fetches slot and decodes it with the slot's Reader.
func (d *Dataset) Data(ctx context.Context, slot string) (any, error) {
	path, err := d.resolver.Fetch(ctx, slot)
	if err != nil {
		return nil, err
	}

	fd, _ := d.desc.Slot(slot)
	value, err := fd.Reader()(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s from %s: %w", d.desc.Name(), slot, path, err)
	}
	return value, nil
}

// DataAs fetches and decodes slot, then asserts the decoded value to T.
// Returns ErrUnexpectedType if the reader produced something else.
func DataAs[T any](ctx context.Context, d *Dataset, slot string) (T, error) {
	var zero T
	value, err := d.Data(ctx, slot)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s %s decoded to %T, want %T", ErrUnexpectedType, d.desc.Name(), slot, value, zero)
	}
	return typed, nil
}

// Describe returns the human-readable summary of the dataset.
func (d *Dataset) Describe() string {
	return Describe(d.desc)
}

// String returns Describe().
func (d *Dataset) String() string {
	return d.Describe()
}

// GoString returns Describe(), so %v and %#v print the same summary.
func (d *Dataset) GoString() string {
	return d.Describe()
}
