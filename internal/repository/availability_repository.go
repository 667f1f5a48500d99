package repository

import (
	"context"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type availabilityRecord struct {
	ID          string `db:"id"`
	TutorID     string `db:"tutor_id"`
	DayOfWeek   int    `db:"day_of_week"`
	StartTime   string `db:"start_time"`
	EndTime     string `db:"end_time"`
	IsRecurring bool   `db:"is_recurring"`
	IsActive    bool   `db:"is_active"`
	CreatedAt   dbTime `db:"created_at"`
	UpdatedAt   dbTime `db:"updated_at"`
}

func (r availabilityRecord) model() model.TutorAvailability {
	return model.TutorAvailability{
		ID:          r.ID,
		TutorID:     r.TutorID,
		DayOfWeek:   r.DayOfWeek,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsRecurring: r.IsRecurring,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

const availabilityColumns = `id, tutor_id, day_of_week, start_time, end_time, is_recurring, is_active, created_at, updated_at`

// AvailabilityRepo manages the tutor_availability table.
type AvailabilityRepo struct{}

// Create inserts a new window.  The caller supplies ID and timestamps.
func (r *AvailabilityRepo) Create(ctx context.Context, q Querier, a *model.TutorAvailability) error {
	_, err := exec(ctx, q, `INSERT INTO tutor_availability (`+availabilityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TutorID, a.DayOfWeek, a.StartTime, a.EndTime, a.IsRecurring, a.IsActive, ts(a.CreatedAt), ts(a.UpdatedAt))
	return err
}

// GetByID returns one window.  ErrNotFound when missing.
func (r *AvailabilityRepo) GetByID(ctx context.Context, q Querier, id string) (*model.TutorAvailability, error) {
	var rec availabilityRecord
	if err := get(ctx, q, &rec, `SELECT `+availabilityColumns+` FROM tutor_availability WHERE id = ?`, id); err != nil {
		return nil, err
	}
	a := rec.model()
	return &a, nil
}

// ListByTutor returns a tutor's windows ordered by weekday and start time.
// When activeOnly is set, inactive windows are skipped.
func (r *AvailabilityRepo) ListByTutor(ctx context.Context, q Querier, tutorID string, activeOnly bool) ([]model.TutorAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM tutor_availability WHERE tutor_id = ?`
	args := []interface{}{tutorID}
	if activeOnly {
		query += ` AND is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY day_of_week, start_time`
	var recs []availabilityRecord
	if err := selectAll(ctx, q, &recs, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.TutorAvailability, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.model())
	}
	return out, nil
}

// Update overwrites the mutable fields of a window owned by a.TutorID.
// ErrNotFound when no such window exists for that tutor.
func (r *AvailabilityRepo) Update(ctx context.Context, q Querier, a *model.TutorAvailability) error {
	n, err := exec(ctx, q, `UPDATE tutor_availability
		SET day_of_week = ?, start_time = ?, end_time = ?, is_recurring = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND tutor_id = ?`,
		a.DayOfWeek, a.StartTime, a.EndTime, a.IsRecurring, a.IsActive, ts(a.UpdatedAt), a.ID, a.TutorID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a window owned by tutorID.
func (r *AvailabilityRepo) Delete(ctx context.Context, q Querier, id, tutorID string) error {
	n, err := exec(ctx, q, `DELETE FROM tutor_availability WHERE id = ? AND tutor_id = ?`, id, tutorID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
