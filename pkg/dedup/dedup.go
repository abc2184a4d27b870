// Package dedup classifies lead records that share a name. It never modifies
// or deletes records.
package dedup

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hazyhaar/leadsheet/pkg/lead"
)

// Reader is the read side of the record store.
type Reader interface {
	QueryByNames(ctx context.Context, bucket, status string, names []string) ([]lead.Record, error)
	QueryAll(ctx context.Context, bucket, status string) ([]lead.Record, error)
}

// Group is a set of at least two records sharing one name key.
type Group struct {
	Name    string        `json:"name"`
	Records []lead.Record `json:"records"`
}

// Key is the comparison form of a name: surrounding whitespace removed and
// Unicode case folded.
func Key(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Detector looks for name collisions among the fresh records of one bucket.
type Detector struct {
	store  Reader
	bucket string
	status string
	logger *slog.Logger
}

// NewDetector returns a Detector scoped to bucket and status. A nil logger
// uses slog.Default().
func NewDetector(store Reader, bucket, status string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: store, bucket: bucket, status: status, logger: logger}
}

// Bucket returns the bucket the detector is scoped to.
func (d *Detector) Bucket() string { return d.bucket }

// FindExistingNameCollisions returns the candidates whose name key already
// exists among persisted fresh records, in candidate order.
func (d *Detector) FindExistingNameCollisions(ctx context.Context, candidates []lead.CanonicalRecord) ([]lead.CanonicalRecord, error) {
	lookup := lookupNames(candidates)
	if len(lookup) == 0 {
		return nil, nil
	}

	existing, err := d.store.QueryByNames(ctx, d.bucket, d.status, lookup)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(existing))
	for i := range existing {
		if k := Key(existing[i].NameOrEmpty()); k != "" {
			seen[k] = true
		}
	}

	var out []lead.CanonicalRecord
	for _, c := range candidates {
		if k := Key(c.NameOrEmpty()); k != "" && seen[k] {
			out = append(out, c)
		}
	}
	d.logger.Debug("name collisions", "bucket", d.bucket, "candidates", len(candidates), "collisions", len(out))
	return out, nil
}

// FindAllDuplicateGroups loads every persisted fresh record of the bucket and
// groups those whose name key occurs more than once.
func (d *Detector) FindAllDuplicateGroups(ctx context.Context) ([]Group, error) {
	recs, err := d.store.QueryAll(ctx, d.bucket, d.status)
	if err != nil {
		return nil, err
	}
	return groupRecords(recs), nil
}

// GroupBatch groups the records of a single upload by name key, using the
// same rules as FindAllDuplicateGroups. It does not consult the store.
func GroupBatch(candidates []lead.CanonicalRecord) []Group {
	recs := make([]lead.Record, len(candidates))
	for i, c := range candidates {
		recs[i] = lead.Record{CanonicalRecord: c}
	}
	return groupRecords(recs)
}

// groupRecords keeps names with two or more records. Groups follow the order
// in which each name key is first seen; records keep their input order.
func groupRecords(recs []lead.Record) []Group {
	var order []string
	byKey := make(map[string][]lead.Record)
	for _, r := range recs {
		k := Key(r.NameOrEmpty())
		if k == "" {
			continue
		}
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	var groups []Group
	for _, k := range order {
		if members := byKey[k]; len(members) >= 2 {
			groups = append(groups, Group{Name: k, Records: members})
		}
	}
	return groups
}

// lookupNames returns the distinct spellings to send to a case-sensitive
// store: each name as written, trimmed, and folded.
func lookupNames(candidates []lead.CanonicalRecord) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, c := range candidates {
		if c.Name == nil || strings.TrimSpace(*c.Name) == "" {
			continue
		}
		add(*c.Name)
		add(strings.TrimSpace(*c.Name))
		add(Key(*c.Name))
	}
	return out
}
