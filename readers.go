package sampledata

import (
	"os"

	"github.com/teamtomo/cryo-et-sample-data/mrc"
)

// Reader decodes a local file into an in-memory value.
type Reader func(path string) (any, error)

// ReaderRegistry maps reader names used in YAML catalogs to Reader functions.
type ReaderRegistry map[string]Reader

// Built-in reader names.
const (
	// ReaderMRC decodes MRC volumes into *mrc.Volume.
	ReaderMRC = "mrc"

	// ReaderRaw returns the file contents as []byte.
	ReaderRaw = "raw"
)

// DefaultReaders returns a fresh registry with the built-in readers.
func DefaultReaders() ReaderRegistry {
	return ReaderRegistry{
		ReaderMRC: ReadMRC,
		ReaderRaw: ReadRaw,
	}
}

// ReadMRC decodes an MRC volume. The returned value is a *mrc.Volume.
func ReadMRC(path string) (any, error) {
	vol, err := mrc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vol, nil
}

// ReadRaw returns the file contents as []byte.
func ReadRaw(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}
