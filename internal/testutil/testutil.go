// Package testutil sets up migrated in-memory databases, seed data and a
// controllable clock for tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/database"
	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
	"github.com/iliyamo/tutoring-sessions/internal/utils"
)

// NewDB opens a private in-memory SQLite database with every migration
// applied.  It is closed when the test ends.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	return db
}

// NewStore returns a Store over NewDB.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, store *repository.Store, role model.Role, name string) model.User {
	t.Helper()
	id := uuid.NewString()
	u := model.User{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "+" + id[:8] + "@example.test",
		Role:      role,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Users.Create(context.Background(), store.DB(), &u))
	return u
}

// SeedCourse inserts an active course.
func SeedCourse(t testing.TB, store *repository.Store, title string) model.Course {
	t.Helper()
	c := model.Course{ID: uuid.NewString(), Title: title, IsActive: true}
	require.NoError(t, store.Courses.Create(context.Background(), store.DB(), &c))
	return c
}

// Actor is shorthand for the caller identity of u.
func Actor(u model.User) model.Actor {
	return model.Actor{UserID: u.ID, Role: u.Role}
}

// Token signs a bearer token for u.
func Token(t testing.TB, secret string, u model.User) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, u.ID, string(u.Role), 60)
	require.NoError(t, err)
	return tok.Token
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
