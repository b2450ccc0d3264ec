// internal/registry/store_test.go
//
// Unit-tests for registry store helpers using sqlmock.
//
// Run: go test ./internal/registry -v

package registry

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func siteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"site_id", "d7_site_id", "site_path", "d7_site_path", "uri", "installed",
	})
}

func TestAll(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM\\s+unl_sites\\s+ORDER\\s+BY site_path ASC").
		WillReturnRows(siteRows().
			AddRow(2, "41", "history", nil, "https://example.edu/history", 2).
			AddRow(5, nil, "math", "https://cms.example.edu/math", "https://example.edu/math", 0))

	got, err := All(context.Background(), db)
	if err != nil {
		t.Fatalf("All error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if got[0].SiteID != 2 || got[0].Path != "history" || got[0].Status != StatusActive {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].LegacyID.Valid {
		t.Fatalf("want NULL d7_site_id, got %q", got[1].LegacyID.String)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByIDDuplicate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM\\s+unl_sites\\s+WHERE\\s+site_id = \\?").
		WithArgs(uint64(7)).
		WillReturnRows(siteRows().
			AddRow(7, nil, "a", nil, "u", 2).
			AddRow(7, nil, "b", nil, "u", 2))

	_, err := ByID(context.Background(), db, 7)
	if !errors.Is(err, ErrDuplicateSite) {
		t.Fatalf("want ErrDuplicateSite, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM\\s+unl_sites\\s+WHERE\\s+site_id = \\?").
		WithArgs(uint64(9)).
		WillReturnRows(siteRows())

	_, err := ByID(context.Background(), db, 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdateLegacyFields(t *testing.T) {
	db, mock := newMockDB(t)

	q := regexp.QuoteMeta(`UPDATE unl_sites`)
	mock.ExpectExec(q + "(.+)").
		WithArgs("41", "https://cms.example.edu/history", uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := UpdateLegacyFields(context.Background(), db, 2, "41", "https://cms.example.edu/history")
	if err != nil {
		t.Fatalf("UpdateLegacyFields error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateLegacyFieldsNoRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE unl_sites(.+)").
		WithArgs("41", "", uint64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := UpdateLegacyFields(context.Background(), db, 999, "41", "")
	if !errors.Is(err, ErrNoRowsUpdated) {
		t.Fatalf("want ErrNoRowsUpdated, got %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{StatusScheduled, "Scheduled for creation."},
		{StatusActive, "In production."},
		{StatusScheduledUpdate, "Scheduled for site update."},
		{Status(42), "Unknown"},
	}
	for _, c := range cases {
		if got := c.status.Label(); got != c.want {
			t.Errorf("Label(%d) = %q, want %q", c.status, got, c.want)
		}
	}
	if !StatusActive.Enrichable() || !StatusScheduledUpdate.Enrichable() {
		t.Error("production and scheduled-update sites must be enrichable")
	}
	if StatusScheduled.Enrichable() || StatusRemoving.Enrichable() {
		t.Error("non-production sites must not be enrichable")
	}
}
