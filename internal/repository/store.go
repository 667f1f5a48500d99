package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.  Every repository
// method takes one so it can run inside or outside a caller's
// transaction.  Queries are written with '?' placeholders and rebound for
// the active driver.
type Querier = sqlx.ExtContext

// Store bundles the repositories over one database handle.
type Store struct {
	db *sqlx.DB

	Users         *UserRepo
	Courses       *CourseRepo
	Availability  *AvailabilityRepo
	Proposals     *ProposalRepo
	Sessions      *SessionRepo
	Attendance    *AttendanceRepo
	Wallets       *WalletRepo
	Notifications *NotificationRepo
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:            db,
		Users:         &UserRepo{},
		Courses:       &CourseRepo{},
		Availability:  &AvailabilityRepo{},
		Proposals:     &ProposalRepo{},
		Sessions:      &SessionRepo{},
		Attendance:    &AttendanceRepo{},
		Wallets:       &WalletRepo{},
		Notifications: &NotificationRepo{},
	}
}

// DB exposes the underlying handle for reads outside a transaction.
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx runs fn inside a transaction.  The transaction is committed when
// fn returns nil and rolled back otherwise.  fn must only use tx; taking
// a second connection from the pool inside fn can deadlock a
// single-connection pool.
func (s *Store) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func exec(ctx context.Context, q Querier, query string, args ...interface{}) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func get(ctx context.Context, q Querier, dest interface{}, query string, args ...interface{}) error {
	return notFound(sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...))
}

func selectAll(ctx context.Context, q Querier, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

// dbTimeLayout is the storage format for every timestamp column.  It
// sorts lexicographically in chronological order, which the sqlite
// schema relies on for range comparisons.
const dbTimeLayout = "2006-01-02 15:04:05"

var scanLayouts = []string{
	dbTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// ts renders t in the storage format (UTC, second precision).
func ts(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// tsPtr renders an optional timestamp; nil becomes SQL NULL.
func tsPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return ts(*t)
}

// dbTime scans DATETIME/TIMESTAMP columns from every supported driver:
// mysql and pgx return time.Time, sqlite returns text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(v interface{}) error {
	switch x := v.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = x.UTC(), true
		return nil
	case []byte:
		return t.parse(string(x))
	case string:
		return t.parse(x)
	}
	return fmt.Errorf("repository: cannot scan %T into timestamp", v)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range scanLayouts {
		if p, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = p.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("repository: unrecognised timestamp %q", s)
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullStr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
