// Command cryoet-sample-data downloads and inspects cryo-ET sample datasets.
//
// Configuration is loaded from flags and the environment:
//   - CRYO_ET_SAMPLE_DATA_DIR: Override for the cache root (optional)
//   - --cache-dir: Cache root when the environment variable is unset
//   - --catalog: YAML catalog replacing the built-in datasets
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	sampledata "github.com/teamtomo/cryo-et-sample-data"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid arguments or an invalid catalog.
	ExitInvalidArgs = 2

	// ExitNotFound indicates an unknown dataset, a missing slot, or a
	// file missing from the remote.
	ExitNotFound = 3

	// ExitNetworkError indicates a network or connection failure.
	ExitNetworkError = 5

	// ExitHashMismatch indicates checksum verification failed.
	ExitHashMismatch = 6

	// ExitStorageError indicates a filesystem operation failed.
	ExitStorageError = 7

	// ExitInterrupted indicates the command was cancelled by a signal.
	ExitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := sampledata.NewCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, sampledata.ErrUnknownDataset):
		return ExitNotFound
	case errors.Is(err, sampledata.ErrUnsupportedSlot):
		return ExitNotFound
	case errors.Is(err, sampledata.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, sampledata.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, sampledata.ErrHashMismatch):
		return ExitHashMismatch
	case errors.Is(err, sampledata.ErrStorage):
		return ExitStorageError
	case errors.Is(err, sampledata.ErrValidation):
		return ExitInvalidArgs
	case errors.Is(err, sampledata.ErrUnsupportedURL):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
