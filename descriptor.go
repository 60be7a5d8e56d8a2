package sampledata

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// FileDescriptor describes one downloadable file: its name relative to the
// dataset base URL, its checksum, and the Reader that decodes it.
// A FileDescriptor cannot be modified after construction.
type FileDescriptor struct {
	fileName string
	checksum string
	reader   Reader
}

// NewFileDescriptor validates and returns a FileDescriptor.
// The checksum must be "algorithm:hex" (md5, sha1, sha256, sha512, blake3)
// or bare sha256 hex. Returns ErrValidation if any field is invalid.
func NewFileDescriptor(fileName, checksum string, reader Reader) (FileDescriptor, error) {
	if err := validateFileName(fileName); err != nil {
		return FileDescriptor{}, err
	}
	sum, err := parseChecksum(checksum)
	if err != nil {
		return FileDescriptor{}, err
	}
	if reader == nil {
		return FileDescriptor{}, &ValidationError{Field: "reader", Value: fileName, Reason: "reader function is required"}
	}
	return FileDescriptor{fileName: fileName, checksum: sum.String(), reader: reader}, nil
}

// FileName returns the remote and cached file name.
func (f FileDescriptor) FileName() string { return f.fileName }

// Checksum returns the canonical "algorithm:hex" checksum.
func (f FileDescriptor) Checksum() string { return f.checksum }

// Reader returns the function that decodes the file.
func (f FileDescriptor) Reader() Reader { return f.reader }

func (f FileDescriptor) slotDescriptor(ReaderRegistry) (FileDescriptor, error) {
	if f.reader == nil {
		return FileDescriptor{}, &ValidationError{Field: "slot", Value: f.fileName, Reason: "zero FileDescriptor; use NewFileDescriptor"}
	}
	return f, nil
}

// FileRecord is the raw, serializable form of a FileDescriptor.
// Reader names a function in a ReaderRegistry.
type FileRecord struct {
	FileName string `yaml:"file_name" json:"file_name"`
	Checksum string `yaml:"checksum" json:"checksum"`
	Reader   string `yaml:"reader" json:"reader"`
}

// FileDescriptor resolves the record's reader name and validates it.
// A nil registry means DefaultReaders().
func (r FileRecord) FileDescriptor(readers ReaderRegistry) (FileDescriptor, error) {
	if readers == nil {
		readers = DefaultReaders()
	}
	reader, ok := readers[r.Reader]
	if !ok || reader == nil {
		return FileDescriptor{}, &ValidationError{Field: "reader", Value: r.Reader, Reason: "unknown reader"}
	}
	return NewFileDescriptor(r.FileName, r.Checksum, reader)
}

func (r FileRecord) slotDescriptor(readers ReaderRegistry) (FileDescriptor, error) {
	return r.FileDescriptor(readers)
}

// SlotInput is either a FileDescriptor or a FileRecord (or *FileRecord).
// It is resolved once, when the DatasetDescriptor is built.
type SlotInput interface {
	slotDescriptor(readers ReaderRegistry) (FileDescriptor, error)
}

var (
	_ SlotInput = FileDescriptor{}
	_ SlotInput = FileRecord{}
	_ SlotInput = (*FileRecord)(nil)
)

// isAbsent reports whether a slot input marks the slot as not provided.
func isAbsent(in SlotInput) bool {
	if in == nil {
		return true
	}
	rec, ok := in.(*FileRecord)
	return ok && rec == nil
}

// DatasetDescriptor describes a named dataset and the files it provides.
// A DatasetDescriptor cannot be modified after construction; accessors
// return copies.
type DatasetDescriptor struct {
	name        string
	author      string
	description string
	baseURL     string
	slots       map[string]FileDescriptor
}

// NewDatasetDescriptor validates and returns a DatasetDescriptor.
// A nil slot input means the dataset does not provide that slot.
// Readers resolve FileRecord inputs; nil means DefaultReaders().
// Returns ErrValidation if any field or slot is invalid.
func NewDatasetDescriptor(name, author, description, baseURL string, slots map[string]SlotInput, readers ReaderRegistry) (DatasetDescriptor, error) {
	if err := validateName(name); err != nil {
		return DatasetDescriptor{}, err
	}
	if strings.TrimSpace(baseURL) == "" {
		return DatasetDescriptor{}, &ValidationError{Field: "base_url", Value: baseURL, Reason: "must not be empty"}
	}

	resolved := make(map[string]FileDescriptor, len(slots))
	byFile := make(map[string]string)
	for _, slot := range slices.Sorted(maps.Keys(slots)) {
		in := slots[slot]
		if isAbsent(in) {
			continue
		}
		if slot == "" || strings.IndexFunc(slot, unicode.IsSpace) >= 0 {
			return DatasetDescriptor{}, &ValidationError{Field: "slot", Value: slot, Reason: "slot names must be non-empty and contain no whitespace"}
		}
		fd, err := in.slotDescriptor(readers)
		if err != nil {
			return DatasetDescriptor{}, prefixField("slots."+slot, err)
		}
		if other, ok := byFile[fd.fileName]; ok && resolved[other].checksum != fd.checksum {
			return DatasetDescriptor{}, &ValidationError{
				Field:  "slots." + slot + ".file_name",
				Value:  fd.fileName,
				Reason: "also used by slot " + other + " with a different checksum",
			}
		}
		byFile[fd.fileName] = slot
		resolved[slot] = fd
	}

	return DatasetDescriptor{
		name:        name,
		author:      author,
		description: description,
		baseURL:     baseURL,
		slots:       resolved,
	}, nil
}

// Name returns the dataset identity.
func (d DatasetDescriptor) Name() string { return d.name }

// Author returns the dataset author(s).
func (d DatasetDescriptor) Author() string { return d.author }

// Description returns the free-text description.
func (d DatasetDescriptor) Description() string { return d.description }

// BaseURL returns the URL file names are resolved against.
func (d DatasetDescriptor) BaseURL() string { return d.baseURL }

// Slot returns the descriptor for a slot, and false if the dataset does
// not provide it.
func (d DatasetDescriptor) Slot(name string) (FileDescriptor, bool) {
	fd, ok := d.slots[name]
	return fd, ok
}

// SlotNames returns the provided slot names in sorted order.
func (d DatasetDescriptor) SlotNames() []string {
	return slices.Sorted(maps.Keys(d.slots))
}

// Registry returns a new map from file name to checksum covering every
// provided slot. Each checksum comes from its own slot's descriptor.
func (d DatasetDescriptor) Registry() map[string]string {
	registry := make(map[string]string, len(d.slots))
	for _, fd := range d.slots {
		registry[fd.fileName] = fd.checksum
	}
	return registry
}

// DatasetConfig is the flat, serializable form of a dataset definition.
// Tomogram and Label are shorthands for the corresponding Slots entries.
type DatasetConfig struct {
	Name        string                 `yaml:"name" json:"name"`
	Author      string                 `yaml:"author" json:"author"`
	Description string                 `yaml:"description" json:"description"`
	BaseURL     string                 `yaml:"base_url" json:"base_url"`
	Tomogram    *FileRecord            `yaml:"tomogram,omitempty" json:"tomogram,omitempty"`
	Label       *FileRecord            `yaml:"label,omitempty" json:"label,omitempty"`
	Slots       map[string]*FileRecord `yaml:"slots,omitempty" json:"slots,omitempty"`
}

// DescriptorFromConfig builds a DatasetDescriptor from a flat configuration.
// It is equivalent to calling NewDatasetDescriptor with the same values.
func DescriptorFromConfig(cfg DatasetConfig, readers ReaderRegistry) (DatasetDescriptor, error) {
	slots, err := cfg.slotInputs()
	if err != nil {
		return DatasetDescriptor{}, err
	}
	return NewDatasetDescriptor(cfg.Name, cfg.Author, cfg.Description, cfg.BaseURL, slots, readers)
}

// slotInputs merges the shorthand slots into the generic slot map.
func (cfg DatasetConfig) slotInputs() (map[string]SlotInput, error) {
	slots := make(map[string]SlotInput, len(cfg.Slots)+2)
	for name, rec := range cfg.Slots {
		slots[name] = rec
	}
	shorthands := []struct {
		name string
		rec  *FileRecord
	}{
		{SlotTomogram, cfg.Tomogram},
		{SlotLabel, cfg.Label},
	}
	for _, s := range shorthands {
		if s.rec == nil {
			continue
		}
		if !isAbsent(slots[s.name]) {
			return nil, &ValidationError{Field: "slots." + s.name, Value: s.rec.FileName, Reason: "defined both as shorthand and in slots"}
		}
		slots[s.name] = s.rec
	}
	return slots, nil
}

// validateName checks a dataset name is usable as a single path segment.
func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Field: "name", Value: name, Reason: "must not be empty"}
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return &ValidationError{Field: "name", Value: name, Reason: "spaces are not allowed in name"}
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return &ValidationError{Field: "name", Value: name, Reason: "must be a single path segment"}
	}
	return nil
}

// validateFileName checks a file name stays inside the cache namespace.
func validateFileName(fileName string) error {
	switch {
	case fileName == "":
		return &ValidationError{Field: "file_name", Value: fileName, Reason: "must not be empty"}
	case fileName == "." || fileName == ".." || strings.ContainsAny(fileName, `/\`):
		return &ValidationError{Field: "file_name", Value: fileName, Reason: "must be a single path segment"}
	}
	return nil
}

// prefixField qualifies a ValidationError's field with the enclosing slot.
func prefixField(prefix string, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: prefix + "." + ve.Field, Value: ve.Value, Reason: ve.Reason}
	}
	return err
}
