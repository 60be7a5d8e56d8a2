package sampledata

import (
	"errors"
	"fmt"
)

// Sentinel errors for dataset resolution.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrValidation indicates a descriptor or configuration failed validation.
	ErrValidation = errors.New("sampledata: invalid descriptor")

	// ErrUnsupportedSlot indicates the dataset does not provide the requested slot.
	ErrUnsupportedSlot = errors.New("sampledata: slot not supported by dataset")

	// ErrHashMismatch indicates a downloaded or cached file failed checksum verification.
	ErrHashMismatch = errors.New("sampledata: checksum verification failed")

	// ErrNetwork indicates a network or connection failure.
	ErrNetwork = errors.New("sampledata: network error")

	// ErrNotFound indicates the remote file does not exist.
	ErrNotFound = errors.New("sampledata: remote file not found")

	// ErrNotInRegistry indicates a fetch for a file name the cache was not configured with.
	ErrNotInRegistry = errors.New("sampledata: file not in registry")

	// ErrStorage indicates a filesystem operation failed.
	ErrStorage = errors.New("sampledata: storage error")

	// ErrUnknownDataset indicates the catalog has no dataset with the requested name.
	ErrUnknownDataset = errors.New("sampledata: unknown dataset")

	// ErrUnsupportedURL indicates a base URL scheme or DOI repository that cannot be fetched.
	ErrUnsupportedURL = errors.New("sampledata: unsupported base url")

	// ErrUnexpectedType indicates a decoded value does not have the requested Go type.
	ErrUnexpectedType = errors.New("sampledata: decoded value has unexpected type")
)

// ValidationError describes a field that failed validation at construction time.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	// Field names the offending field, e.g. "name" or "slots.tomogram.checksum".
	Field string

	// Value is the rejected value.
	Value string

	// Reason says what is wrong with the value.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sampledata: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnsupportedSlotError is returned when a slot absent from a dataset is requested.
// It matches ErrUnsupportedSlot with errors.Is.
type UnsupportedSlotError struct {
	// Dataset is the name of the dataset that was asked.
	Dataset string

	// Slot is the requested slot name.
	Slot string
}

func (e *UnsupportedSlotError) Error() string {
	return fmt.Sprintf("sampledata: dataset %q doesn't have a %s", e.Dataset, e.Slot)
}

// Is reports whether target is ErrUnsupportedSlot.
func (e *UnsupportedSlotError) Is(target error) bool {
	return target == ErrUnsupportedSlot
}
