package repository

import (
	"context"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type userRecord struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	CreatedAt dbTime `db:"created_at"`
}

func (r userRecord) model() model.User {
	return model.User{ID: r.ID, Name: r.Name, Email: r.Email, Role: model.Role(r.Role), CreatedAt: r.CreatedAt.Time}
}

// UserRepo reads the users table, which is owned by the wider application.
type UserRepo struct{}

// GetByID fetches a user by id.  ErrNotFound when missing.
func (r *UserRepo) GetByID(ctx context.Context, q Querier, id string) (*model.User, error) {
	var rec userRecord
	if err := get(ctx, q, &rec, `SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	u := rec.model()
	return &u, nil
}

// Create inserts a user.  Used by seeding and tests; user management
// lives elsewhere.
func (r *UserRepo) Create(ctx context.Context, q Querier, u *model.User) error {
	_, err := exec(ctx, q, `INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(u.Role), ts(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// CourseRepo reads the courses table.
type CourseRepo struct{}

// GetByID fetches a course by id.  ErrNotFound when missing.
func (r *CourseRepo) GetByID(ctx context.Context, q Querier, id string) (*model.Course, error) {
	var rec struct {
		ID       string `db:"id"`
		Title    string `db:"title"`
		IsActive bool   `db:"is_active"`
	}
	if err := get(ctx, q, &rec, `SELECT id, title, is_active FROM courses WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &model.Course{ID: rec.ID, Title: rec.Title, IsActive: rec.IsActive}, nil
}

// Create inserts a course.  Used by seeding and tests.
func (r *CourseRepo) Create(ctx context.Context, q Querier, c *model.Course) error {
	_, err := exec(ctx, q, `INSERT INTO courses (id, title, is_active) VALUES (?, ?, ?)`, c.ID, c.Title, c.IsActive)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
