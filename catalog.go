package sampledata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed datasets.yaml
var builtinCatalogYAML []byte

// catalogFile is the YAML document layout.
type catalogFile struct {
	Datasets []DatasetConfig `yaml:"datasets"`
}

// Catalog is an ordered, read-only set of dataset descriptors.
type Catalog struct {
	names       []string
	descriptors map[string]DatasetDescriptor
}

// LoadCatalog parses a YAML catalog and validates every dataset in it.
// Unknown fields and duplicate names are rejected.
func LoadCatalog(r io.Reader, readers ReaderRegistry) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing catalog: %v", ErrValidation, err)
	}

	c := &Catalog{descriptors: make(map[string]DatasetDescriptor, len(file.Datasets))}
	for i, cfg := range file.Datasets {
		desc, err := DescriptorFromConfig(cfg, readers)
		if err != nil {
			return nil, fmt.Errorf("catalog dataset %d: %w", i, err)
		}
		if _, dup := c.descriptors[desc.Name()]; dup {
			return nil, &ValidationError{Field: "name", Value: desc.Name(), Reason: "defined more than once in catalog"}
		}
		c.names = append(c.names, desc.Name())
		c.descriptors[desc.Name()] = desc
	}
	return c, nil
}

// Names returns dataset names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Descriptor returns the named dataset's descriptor.
// Returns ErrUnknownDataset if the catalog has no such dataset.
func (c *Catalog) Descriptor(name string) (DatasetDescriptor, error) {
	desc, ok := c.descriptors[name]
	if !ok {
		return DatasetDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return desc, nil
}

// Open binds the named dataset to a cache resolver.
func (c *Catalog) Open(name string, opts ...Option) (*Dataset, error) {
	desc, err := c.Descriptor(name)
	if err != nil {
		return nil, err
	}
	return NewDataset(desc, opts...)
}

var builtinCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(builtinCatalogYAML), DefaultReaders())
})

// BuiltinCatalog returns the datasets shipped with this package.
// It is parsed on first use.
func BuiltinCatalog() (*Catalog, error) {
	return builtinCatalog()
}

var hivDataset = sync.OnceValues(func() (*Dataset, error) {
	c, err := BuiltinCatalog()
	if err != nil {
		return nil, err
	}
	return c.Open("hiv")
})

// HIV returns the shared immature HIV-1 VLP dataset (EMPIAR-10164,
// Zenodo 6504891) with default options. It is constructed on first call;
// nothing is downloaded until an accessor is used.
func HIV() (*Dataset, error) {
	return hivDataset()
}
