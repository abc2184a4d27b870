package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hazyhaar/leadsheet/pkg/lead"
)

// UnnamedFile labels records whose source file name is empty.
const UnnamedFile = "Sans nom"

// DefaultPageSize applies when ListByFile is called without a limit.
const DefaultPageSize = 100

var (
	selectColumns = "id, created_at, " + strings.Join(lead.Columns, ", ")
	insertSQL     = "INSERT INTO leads (" + selectColumns + ") VALUES (:" +
		strings.Join(append([]string{"id", "created_at"}, lead.Columns...), ", :") + ")"
)

// FileSummary counts the records loaded from one source file.
type FileSummary struct {
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}

// InsertBatch writes recs in a single transaction: either every record is
// persisted or none is.
func (s *Store) InsertBatch(ctx context.Context, recs []lead.CanonicalRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertSQL)
	if err != nil {
		return wrap("insert", err)
	}
	defer stmt.Close()

	created := s.now().UnixMilli()
	for i := range recs {
		row := lead.Record{ID: s.newID(), CreatedAtMillis: created, CanonicalRecord: recs[i]}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return wrap("insert", fmt.Errorf("record %d: %w", i, err))
		}
	}
	return wrap("insert", tx.Commit())
}

// QueryByNames returns the records of bucket with the given status whose name
// is exactly one of names. Matching is case-sensitive.
func (s *Store) QueryByNames(ctx context.Context, bucket, status string, names []string) ([]lead.Record, error) {
	if len(names) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+selectColumns+` FROM leads
		WHERE onglet = ? AND statut_lead = ? AND nom IN (?)
		ORDER BY created_at DESC, seq DESC`, bucket, status, names)
	if err != nil {
		return nil, wrap("query by names", err)
	}
	return s.selectRecords(ctx, "query by names", q, args...)
}

// QueryAll returns every record of bucket with the given status, newest first.
func (s *Store) QueryAll(ctx context.Context, bucket, status string) ([]lead.Record, error) {
	return s.selectRecords(ctx, "query all", `SELECT `+selectColumns+` FROM leads
		WHERE onglet = ? AND statut_lead = ?
		ORDER BY created_at DESC, seq DESC`, bucket, status)
}

// DeleteWhere removes the records of bucket loaded from sourceFile and
// returns how many were deleted.
func (s *Store) DeleteWhere(ctx context.Context, bucket, sourceFile string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM leads WHERE onglet = ? AND nom_fichier = ?`),
		bucket, fileKey(sourceFile))
	if err != nil {
		return 0, wrap("delete", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("delete", err)
}

// ListFiles groups the records of bucket by source file, most recently loaded
// file first. A zero from or to leaves that side of the window open; to is
// inclusive up to the end of its day.
func (s *Store) ListFiles(ctx context.Context, bucket string, from, to time.Time) ([]FileSummary, error) {
	q := `SELECT nom_fichier AS name, COUNT(*) AS count FROM leads WHERE onglet = ?`
	args := []any{bucket}
	if !from.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		q += ` AND created_at <= ?`
		args = append(args, endOfDay(to).UnixMilli())
	}
	q += ` GROUP BY nom_fichier ORDER BY MAX(created_at) DESC, nom_fichier`

	var files []FileSummary
	if err := s.db.SelectContext(ctx, &files, s.db.Rebind(q), args...); err != nil {
		return nil, wrap("list files", err)
	}
	for i := range files {
		if files[i].Name == "" {
			files[i].Name = UnnamedFile
		}
	}
	return files, nil
}

// ListByFile pages through the records of bucket loaded from sourceFile,
// newest first.
func (s *Store) ListByFile(ctx context.Context, bucket, sourceFile string, limit, offset int) ([]lead.Record, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.selectRecords(ctx, "list by file", `SELECT `+selectColumns+` FROM leads
		WHERE onglet = ? AND nom_fichier = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?`, bucket, fileKey(sourceFile), limit, offset)
}

// SearchByName finds records in every bucket whose name contains term,
// ignoring case, oldest first. A non-empty phone must match exactly.
func (s *Store) SearchByName(ctx context.Context, term, phone string) ([]lead.Record, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	like := "LIKE"
	if s.db.DriverName() == DriverPostgres {
		like = "ILIKE"
	}
	q := `SELECT ` + selectColumns + ` FROM leads WHERE nom ` + like + ` ? ESCAPE '\'`
	args := []any{"%" + escapeLike(term) + "%"}
	if phone = strings.TrimSpace(phone); phone != "" {
		q += ` AND telephone = ?`
		args = append(args, phone)
	}
	q += ` ORDER BY created_at ASC, seq ASC`
	return s.selectRecords(ctx, "search", q, args...)
}

func (s *Store) selectRecords(ctx context.Context, op, q string, args ...any) ([]lead.Record, error) {
	var recs []lead.Record
	if err := s.db.SelectContext(ctx, &recs, s.db.Rebind(q), args...); err != nil {
		return nil, wrap(op, err)
	}
	for i := range recs {
		recs[i].CreatedAt = time.UnixMilli(recs[i].CreatedAtMillis).UTC()
	}
	return recs, nil
}

func fileKey(name string) string {
	if name == UnnamedFile {
		return ""
	}
	return name
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
