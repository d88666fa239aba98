package tlcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportVersion is the current snapshot format version.
const ExportVersion = "1.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Prefix     string            `json:"prefix"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry represents a single cache entry. Value holds the encoded
// payload exactly as stored.
type ExportEntry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Exporter snapshots every live entry tracked by a repository's registry.
type Exporter[T any] struct {
	repo *Repository[T]
}

// NewExporter creates a new cache exporter.
func NewExporter[T any](repo *Repository[T]) *Exporter[T] {
	return &Exporter[T]{repo: repo}
}

// Export writes the cache contents to a writer in JSON format. Registry
// entries whose value has already expired are skipped.
func (e *Exporter[T]) Export(ctx context.Context, w io.Writer, metadata map[string]string) (int, error) {
	keys, err := e.repo.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading registry: %w", err)
	}

	entries := make([]ExportEntry, 0, len(keys))
	for _, key := range keys {
		data, ok, err := e.repo.getRaw(ctx, key)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		entries = append(entries, ExportEntry{Key: key, Value: data})
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Prefix:     e.repo.Prefix(),
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return 0, fmt.Errorf("encoding JSON: %w", err)
	}

	return len(entries), nil
}

// ExportToFile exports the cache to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter[T]) ExportToFile(ctx context.Context, path string, metadata map[string]string) (int, error) {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// Importer loads a snapshot back into a repository.
type Importer[T any] struct {
	repo *Repository[T]
}

// NewImporter creates a new cache importer.
func NewImporter[T any](repo *Repository[T]) *Importer[T] {
	return &Importer[T]{repo: repo}
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
}

// Import reads a snapshot and writes every entry for the given number of
// minutes, registering each key first. Entries whose key was not derived
// under the repository's prefix are counted as failed. A store failure
// aborts the import.
func (i *Importer[T]) Import(ctx context.Context, r io.Reader, minutes int) (*ImportResult, error) {
	if minutes <= 0 {
		return nil, &InvalidArgumentError{Field: "minutes", Message: "must be positive"}
	}

	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	ttl := time.Duration(minutes) * time.Minute
	for _, entry := range export.Entries {
		if !ownsKey(i.repo.Prefix(), entry.Key) {
			result.Failed++
			continue
		}
		if err := i.repo.putRaw(ctx, entry.Key, entry.Value, ttl); err != nil {
			return result, err
		}
		result.Imported++
	}

	return result, nil
}

// ImportFromFile imports cache entries from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer[T]) ImportFromFile(ctx context.Context, path string, minutes int) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f, minutes)
}
