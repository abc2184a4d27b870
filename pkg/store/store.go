// Package store persists canonical lead records. SQLite (modernc, pure Go) is
// the default backend; PostgreSQL is available through lib/pq.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsheet/pkg/lead"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for a driver other than DriverSQLite
// or DriverPostgres.
var ErrUnknownDriver = errors.New("store: unknown driver")

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Error reports a failed store operation. Callers match the cause with
// errors.Is / errors.As through Unwrap.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "store " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store is the lead record store.
type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	newID func() string
}

// Open connects to the database and creates the leads table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sqlx.Open(DriverSQLite, sqliteDSN(dsn))
	case DriverPostgres:
		db, err = sqlx.Open(DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
}

// New wraps an existing connection. The bind style follows db.DriverName().
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.NewString}
}

// Migrate creates the leads table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.db.DriverName()) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

func schema(driver string) []string {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS leads (\n\t")
	b.WriteString(seq)
	b.WriteString(",\n\tid TEXT NOT NULL UNIQUE,\n\tcreated_at BIGINT NOT NULL")
	for _, c := range lead.Columns {
		b.WriteString(",\n\t")
		b.WriteString(c)
		b.WriteString(" TEXT")
		if c == "onglet" || c == "nom_fichier" {
			b.WriteString(" NOT NULL DEFAULT ''")
		}
	}
	b.WriteString("\n)")

	return []string{
		b.String(),
		`CREATE INDEX IF NOT EXISTS leads_onglet_statut_idx ON leads (onglet, statut_lead)`,
		`CREATE INDEX IF NOT EXISTS leads_onglet_fichier_idx ON leads (onglet, nom_fichier)`,
		`CREATE INDEX IF NOT EXISTS leads_nom_idx ON leads (nom)`,
	}
}
