package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hazyhaar/leadsheet/pkg/lead"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := New(sqlx.NewDb(db, DriverPostgres))
	s.now = func() time.Time { return time.UnixMilli(1734858000000) }
	return s, mock
}

func TestPostgresSchema(t *testing.T) {
	stmts := schema(DriverPostgres)
	if !regexp.MustCompile(`seq BIGSERIAL PRIMARY KEY`).MatchString(stmts[0]) {
		t.Errorf("postgres table = %s", stmts[0])
	}
	if regexp.MustCompile(`AUTOINCREMENT`).MatchString(stmts[0]) {
		t.Error("postgres table uses sqlite AUTOINCREMENT")
	}
}

func TestPostgresInsertBatch_Commits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO leads (id, created_at, nom,"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InsertBatch(context.Background(), []lead.CanonicalRecord{
		rec("Jean Dupont", lead.BucketIntake, lead.StatusFresh, "a"),
		rec("Marie Leroy", lead.BucketIntake, lead.StatusFresh, "a"),
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresInsertBatch_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)
	cause := errors.New("connection reset by peer")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO leads"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(cause)
	mock.ExpectRollback()

	err := s.InsertBatch(context.Background(), []lead.CanonicalRecord{
		rec("A", lead.BucketIntake, lead.StatusFresh, "a"),
		rec("B", lead.BucketIntake, lead.StatusFresh, "a"),
		rec("C", lead.BucketIntake, lead.StatusFresh, "a"),
	})
	var se *Error
	if !errors.As(err, &se) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want *store.Error wrapping cause", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresQueryByNames_ExpandsAndRebinds(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "created_at", "nom", "statut_lead", "onglet", "nom_fichier"}).
		AddRow("id-1", int64(1734858000000), "Jean Dupont", "nouveau", "Nouveau leads", "a.xlsx")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE onglet = $1 AND statut_lead = $2 AND nom IN ($3, $4)")).
		WithArgs(lead.BucketIntake, lead.StatusFresh, "Jean Dupont", "jean dupont").
		WillReturnRows(rows)

	got, err := s.QueryByNames(context.Background(), lead.BucketIntake, lead.StatusFresh, []string{"Jean Dupont", "jean dupont"})
	if err != nil {
		t.Fatalf("QueryByNames: %v", err)
	}
	if len(got) != 1 || got[0].ID != "id-1" || got[0].NameOrEmpty() != "Jean Dupont" {
		t.Fatalf("records = %+v", got)
	}
	if want := time.UnixMilli(1734858000000).UTC(); !got[0].CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSearchByName_UsesILike(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE nom ILIKE $1 ESCAPE '\' AND telephone = $2`)).
		WithArgs("%dupont%", "0601020304").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "nom"}))

	got, err := s.SearchByName(context.Background(), " dupont ", "0601020304")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("records = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresQueryAll_ErrorIsStoreError(t *testing.T) {
	s, mock := newMockStore(t)
	cause := errors.New("relation \"leads\" does not exist")
	mock.ExpectQuery("FROM leads").WillReturnError(cause)

	_, err := s.QueryAll(context.Background(), lead.BucketIntake, lead.StatusFresh)
	var se *Error
	if !errors.As(err, &se) || se.Op != "query all" || !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
}
