// Package ingest loads a cleaned table into the record store: rows are mapped
// to canonical records, checked for name collisions when they target the
// intake bucket, then written in fixed-size chunks.
//
// A Coordinator runs one ingestion at a time. Callers must not start a second
// run on the same Coordinator before the first returns.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/leadsheet/pkg/dedup"
	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

// DefaultChunkSize is the number of records per InsertBatch call.
const DefaultChunkSize = 100

// Operator input errors, reported before any ingestion starts.
var (
	ErrMissingFileName = errors.New("ingest: source file name is required")
	ErrMissingBucket   = errors.New("ingest: bucket is required")
)

// ValidateTarget checks the operator-supplied destination.
func ValidateTarget(t lead.Target) error {
	if strings.TrimSpace(t.Bucket) == "" {
		return ErrMissingBucket
	}
	if strings.TrimSpace(t.SourceFile) == "" {
		return ErrMissingFileName
	}
	return nil
}

// SourceName derives the default source file name from an upload: the
// base name without its extension, so "exports/leads-mars.xlsx" gives
// "leads-mars".
func SourceName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Inserter is the write side of the record store. Each call is all-or-nothing.
type Inserter interface {
	InsertBatch(ctx context.Context, recs []lead.CanonicalRecord) error
}

// CollisionFinder reports candidates whose name is already taken.
type CollisionFinder interface {
	FindExistingNameCollisions(ctx context.Context, candidates []lead.CanonicalRecord) ([]lead.CanonicalRecord, error)
}

// Outcome summarises one ingestion run.
type Outcome struct {
	Bucket         string   `json:"bucket"`
	SourceFile     string   `json:"source_file"`
	Attempted      int      `json:"attempted"`
	Persisted      int      `json:"persisted"`
	Duplicates     int      `json:"duplicates"`
	DuplicateNames []string `json:"duplicate_names,omitempty"`

	// FailedAtRow is the 1-based mapped row that starts the failed chunk, or
	// 0 when every chunk was written.
	FailedAtRow int    `json:"failed_at_row,omitempty"`
	Error       string `json:"error,omitempty"`
	Err         error  `json:"-"`
}

// Config tunes a Coordinator.
type Config struct {
	ChunkSize    int
	IntakeBucket string
}

// Coordinator orchestrates mapping, duplicate checking and chunked writes.
type Coordinator struct {
	store     Inserter
	detector  CollisionFinder
	chunkSize int
	intake    string
	logger    *slog.Logger
}

// NewCoordinator returns a Coordinator. A zero ChunkSize means
// DefaultChunkSize, an empty IntakeBucket means lead.BucketIntake, and a nil
// detector disables duplicate checking.
func NewCoordinator(store Inserter, detector CollisionFinder, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.IntakeBucket == "" {
		cfg.IntakeBucket = lead.BucketIntake
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     store,
		detector:  detector,
		chunkSize: cfg.ChunkSize,
		intake:    cfg.IntakeBucket,
		logger:    logger,
	}
}

// Ingest maps every data row of t and persists the records chunk by chunk, in
// order. The first failing chunk stops the run; chunks already written stay
// written. The store's error is returned as is and also recorded in the
// Outcome.
func (c *Coordinator) Ingest(ctx context.Context, t *sheet.Table, target lead.Target) (*Outcome, error) {
	recs := lead.MapTable(t, target)
	out := &Outcome{Bucket: target.Bucket, SourceFile: target.SourceFile, Attempted: len(recs)}
	defer recordRun(out)

	if target.Bucket == c.intake && c.detector != nil {
		c.checkCollisions(ctx, recs, out)
	}

	for start, chunk := 0, 0; start < len(recs); start, chunk = start+c.chunkSize, chunk+1 {
		end := min(start+c.chunkSize, len(recs))
		if err := c.store.InsertBatch(ctx, recs[start:end]); err != nil {
			out.Err, out.Error, out.FailedAtRow = err, err.Error(), start+1
			c.logger.Error("ingest chunk failed",
				"bucket", target.Bucket, "file", target.SourceFile,
				"chunk", chunk, "rows", fmt.Sprintf("%d-%d", start+1, end),
				"persisted", out.Persisted, "attempted", out.Attempted, "error", err)
			return out, err
		}
		out.Persisted += end - start
		c.logger.Debug("ingest chunk written", "bucket", target.Bucket, "chunk", chunk, "rows", end-start)
	}

	c.logger.Info("ingest done",
		"bucket", target.Bucket, "file", target.SourceFile,
		"persisted", out.Persisted, "duplicates", out.Duplicates)
	return out, nil
}

// checkCollisions annotates out with existing-name collisions. A failed
// lookup counts as no collisions and never blocks the run.
func (c *Coordinator) checkCollisions(ctx context.Context, recs []lead.CanonicalRecord, out *Outcome) {
	dups, err := c.detector.FindExistingNameCollisions(ctx, recs)
	if err != nil {
		lookupFailuresTotal.Inc()
		c.logger.Warn("duplicate lookup failed", "bucket", out.Bucket, "error", err)
		return
	}
	out.Duplicates = len(dups)

	seen := make(map[string]bool, len(dups))
	for i := range dups {
		name := dups[i].NameOrEmpty()
		if k := dedup.Key(name); !seen[k] {
			seen[k] = true
			out.DuplicateNames = append(out.DuplicateNames, name)
		}
	}
}
