// internal/connector/connector_test.go
//
// Unit-tests for DSN derivation, failure classification, and pool
// lifecycle.  Lifecycle tests swap the open hook for a fake; opening a
// real pool needs a live server and is covered by integration
// environments, not here.
//
// Run: go test ./internal/connector -v

package connector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const testDSN = "registry:secret@tcp(db.internal:3306)/placeholder"

func newMockPool(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDatabaseName(t *testing.T) {
	if got := DatabaseName(42); got != "tenant-db-42" {
		t.Fatalf("DatabaseName(42) = %q, want %q", got, "tenant-db-42")
	}
}

func TestDSNFor(t *testing.T) {
	c := New("registry:secret@tcp(db.internal:3306)/placeholder?parseTime=true")

	dsn, err := c.dsnFor(7)
	if err != nil {
		t.Fatalf("dsnFor error: %v", err)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("derived DSN does not parse: %v", err)
	}
	if cfg.DBName != "tenant-db-7" {
		t.Errorf("DBName = %q, want %q", cfg.DBName, "tenant-db-7")
	}
	if cfg.User != "registry" || cfg.Passwd != "secret" {
		t.Errorf("credentials not inherited: %s/%s", cfg.User, cfg.Passwd)
	}
	if cfg.Addr != "db.internal:3306" {
		t.Errorf("host not inherited: %s", cfg.Addr)
	}
	if !cfg.ParseTime {
		t.Error("driver params not inherited")
	}
}

func TestDSNForBadTemplate(t *testing.T) {
	c := New("::not a dsn::")
	if _, err := c.dsnFor(1); err == nil {
		t.Fatal("want parse error for malformed template")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, KindAuthFailed},
		{"db access denied", &mysql.MySQLError{Number: 1044, Message: "Access denied for db"}, KindAuthFailed},
		{"unknown database", &mysql.MySQLError{Number: 1049, Message: "Unknown database"}, KindUnreachable},
		{"plain", errors.New("connection refused"), KindUnreachable},
	}
	for _, c := range cases {
		if got := classify(c.err); got != c.want {
			t.Errorf("%s: classify = %s, want %s", c.name, got, c.want)
		}
	}
}

// A slow open must run on the connector's own budget, not the first
// caller's: the caller whose deadline lapses degrades as a timeout, and
// the pool still comes up for everyone after it.
func TestAcquireOpenOutlivesCallerDeadline(t *testing.T) {
	db, _ := newMockPool(t)
	release := make(chan struct{})
	var opens atomic.Int32
	var openCtx atomic.Value // context.Context seen by the open hook

	c := New(testDSN)
	c.open = func(ctx context.Context, dsn string) (*sqlx.DB, error) {
		opens.Add(1)
		openCtx.Store(ctx)
		<-release
		return db, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Acquire(ctx, 7)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindTimeout {
		t.Fatalf("expired caller: err = %v, want Kind %s", err, KindTimeout)
	}
	if got := openCtx.Load().(context.Context); got.Err() != nil {
		t.Fatalf("open context died with the caller: %v", got.Err())
	}

	close(release)
	deadline := time.After(time.Second)
	for {
		if _, ok := c.m.Load(uint64(7)); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pool never registered after open completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	got, err := c.Acquire(context.Background(), 7)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if got != db {
		t.Error("second Acquire did not return the opened pool")
	}
	if n := opens.Load(); n != 1 {
		t.Errorf("open hook ran %d times, want 1", n)
	}
}

func TestAcquireAfterClose(t *testing.T) {
	var opens atomic.Int32
	c := New(testDSN)
	c.open = func(ctx context.Context, dsn string) (*sqlx.DB, error) {
		opens.Add(1)
		db, _ := newMockPool(t)
		return db, nil
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := c.Acquire(context.Background(), 3)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Acquire after Close: err = %v, want ErrClosed", err)
	}
	if n := opens.Load(); n != 0 {
		t.Errorf("open hook ran %d times after Close, want 0", n)
	}
}

// A Close that lands while an open is in flight must not strand the new
// pool: the open's result is discarded and closed, and the caller gets
// ErrClosed.
func TestCloseDuringOpenDiscardsPool(t *testing.T) {
	db, mock := newMockPool(t)
	mock.ExpectClose()
	opened := make(chan struct{})
	release := make(chan struct{})

	c := New(testDSN)
	c.open = func(ctx context.Context, dsn string) (*sqlx.DB, error) {
		close(opened)
		<-release
		return db, nil
	}

	errc := make(chan error, 1)
	go func() {
		_, err := c.Acquire(context.Background(), 5)
		errc <- err
	}()

	<-opened
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Fatalf("racing Acquire: err = %v, want ErrClosed", err)
	}
	if _, ok := c.m.Load(uint64(5)); ok {
		t.Error("pool registered after Close")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("orphaned pool was not closed: %v", err)
	}
}
