// Package sampledata provides named cryo-ET sample datasets that are
// downloaded on first use, verified by checksum, and cached locally.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via Dataset - Applications obtain a Dataset from
//     HIV, BuiltinCatalog, New, or FromConfig and call Tomogram, Label,
//     or Data to get a decoded volume. Files are downloaded on the first
//     call and served from the cache afterwards.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach a
//     "sample-data" style subcommand tree to their Cobra root command,
//     providing list, describe, path, fetch, and info.
//
// # Descriptors
//
// A DatasetDescriptor is an immutable, validated description of a dataset:
// its name, author, description, base URL, and one FileDescriptor per
// provided slot. Descriptors can be built directly, from a DatasetConfig,
// or loaded from a YAML catalog with LoadCatalog.
//
// # Thread Safety
//
// Dataset, CacheResolver, and FileCache are safe for concurrent use.
// Concurrent fetches of the same file within a process share a single
// download, and fetches from separate processes are serialized with a
// lock file next to the cached file.
//
// # Content Verification
//
// Every file carries an "algorithm:hexdigest" checksum (md5, sha1, sha256,
// sha512, or blake3; a bare digest means sha256). Cached files are verified
// on every fetch and downloaded again if they no longer match. Downloads
// are hashed while streaming and only renamed into place once verified.
//
// # Storage
//
// Files are cached under <root>/cryo_et_sample_data/<dataset name>/ where
// root is the platform cache directory:
//   - Linux: $XDG_CACHE_HOME or ~/.cache
//   - macOS: ~/Library/Caches
//   - Windows: %LOCALAPPDATA%
//
// The root can be overridden with WithCacheDir or the
// CRYO_ET_SAMPLE_DATA_DIR environment variable, which takes precedence.
package sampledata
