package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type sessionRecord struct {
	ID               string         `db:"id"`
	TutorID          string         `db:"tutor_id"`
	StudentID        sql.NullString `db:"student_id"`
	CourseID         string         `db:"course_id"`
	ProposalID       sql.NullString `db:"proposal_id"`
	ScheduledStart   dbTime         `db:"scheduled_start"`
	ScheduledEnd     dbTime         `db:"scheduled_end"`
	ScheduledMinutes int            `db:"scheduled_minutes"`
	Status           string         `db:"status"`
	IsGroupSession   bool           `db:"is_group_session"`
	TutorJoinTime    dbTime         `db:"tutor_join_time"`
	StudentJoinTime  dbTime         `db:"student_join_time"`
	TutorLate        bool           `db:"tutor_late"`
	ActualStartTime  dbTime         `db:"actual_start_time"`
	ActualEndTime    dbTime         `db:"actual_end_time"`
	ReservedMinutes  int            `db:"reserved_minutes"`
	BillableMinutes  int            `db:"billable_minutes"`
	Notes            string         `db:"notes"`
	StatusReason     sql.NullString `db:"status_reason"`
	CreatedAt        dbTime         `db:"created_at"`
	UpdatedAt        dbTime         `db:"updated_at"`
}

func (r sessionRecord) model() model.TutoringSession {
	return model.TutoringSession{
		ID:               r.ID,
		TutorID:          r.TutorID,
		StudentID:        strPtr(r.StudentID),
		CourseID:         r.CourseID,
		ProposalID:       strPtr(r.ProposalID),
		ScheduledStart:   r.ScheduledStart.Time,
		ScheduledEnd:     r.ScheduledEnd.Time,
		ScheduledMinutes: r.ScheduledMinutes,
		Status:           model.SessionStatus(r.Status),
		IsGroupSession:   r.IsGroupSession,
		TutorJoinTime:    r.TutorJoinTime.ptr(),
		StudentJoinTime:  r.StudentJoinTime.ptr(),
		TutorLate:        r.TutorLate,
		ActualStartTime:  r.ActualStartTime.ptr(),
		ActualEndTime:    r.ActualEndTime.ptr(),
		ReservedMinutes:  r.ReservedMinutes,
		BillableMinutes:  r.BillableMinutes,
		Notes:            r.Notes,
		StatusReason:     strPtr(r.StatusReason),
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
}

const sessionColumns = `id, tutor_id, student_id, course_id, proposal_id, scheduled_start, scheduled_end,
	scheduled_minutes, status, is_group_session, tutor_join_time, student_join_time, tutor_late,
	actual_start_time, actual_end_time, reserved_minutes, billable_minutes, notes, status_reason,
	created_at, updated_at`

// SessionRepo manages the tutoring_sessions table.  Every state change is
// a conditional UPDATE whose WHERE clause restates the precondition, so
// the rows-affected count tells the caller whether it won a race.
type SessionRepo struct{}

// Create inserts a session.  The caller supplies ID, status and timestamps.
func (r *SessionRepo) Create(ctx context.Context, q Querier, s *model.TutoringSession) error {
	_, err := exec(ctx, q, `INSERT INTO tutoring_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TutorID, nullStr(s.StudentID), s.CourseID, nullStr(s.ProposalID),
		ts(s.ScheduledStart), ts(s.ScheduledEnd), s.ScheduledMinutes, string(s.Status), s.IsGroupSession,
		tsPtr(s.TutorJoinTime), tsPtr(s.StudentJoinTime), s.TutorLate, tsPtr(s.ActualStartTime), tsPtr(s.ActualEndTime),
		s.ReservedMinutes, s.BillableMinutes, s.Notes, nullStr(s.StatusReason), ts(s.CreatedAt), ts(s.UpdatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID returns one session.  ErrNotFound when missing.
func (r *SessionRepo) GetByID(ctx context.Context, q Querier, id string) (*model.TutoringSession, error) {
	var rec sessionRecord
	if err := get(ctx, q, &rec, `SELECT `+sessionColumns+` FROM tutoring_sessions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	s := rec.model()
	return &s, nil
}

// SessionFilter narrows List.  A zero UserID lists every session.
type SessionFilter struct {
	UserID string
	Status model.SessionStatus
	From   *time.Time
	To     *time.Time
}

// List returns sessions ordered by scheduled start.  With a UserID the
// result holds sessions where that user is the tutor, the 1:1 student or
// a registered group attendee.
func (r *SessionRepo) List(ctx context.Context, q Querier, f SessionFilter) ([]model.TutoringSession, error) {
	var where []string
	var args []interface{}
	if f.UserID != "" {
		where = append(where, `(tutor_id = ? OR student_id = ? OR id IN (SELECT session_id FROM session_attendance WHERE student_id = ?))`)
		args = append(args, f.UserID, f.UserID, f.UserID)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		where = append(where, `scheduled_start >= ?`)
		args = append(args, ts(*f.From))
	}
	if f.To != nil {
		where = append(where, `scheduled_start < ?`)
		args = append(args, ts(*f.To))
	}
	query := `SELECT ` + sessionColumns + ` FROM tutoring_sessions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY scheduled_start, id`
	var recs []sessionRecord
	if err := selectAll(ctx, q, &recs, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.TutoringSession, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.model())
	}
	return out, nil
}

// HasOverlap reports whether tutorID has a scheduled or in-progress
// session intersecting [start, end), ignoring excludeID.  Windows that
// only touch (one ends when the other starts) do not overlap.
func (r *SessionRepo) HasOverlap(ctx context.Context, q Querier, tutorID string, start, end time.Time, excludeID string) (bool, error) {
	s, e := ts(start), ts(end)
	var n int
	err := get(ctx, q, &n, `SELECT COUNT(*) FROM tutoring_sessions
		WHERE tutor_id = ? AND status IN (?, ?) AND id <> ?
		AND ((scheduled_start <= ? AND ? < scheduled_end)
		  OR (scheduled_start < ? AND ? <= scheduled_end)
		  OR (? <= scheduled_start AND scheduled_end <= ?))`,
		tutorID, string(model.SessionScheduled), string(model.SessionInProgress), excludeID,
		s, s,
		e, e,
		s, e)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReserveStudent sets the 1:1 reservation marker and the student's join
// time in one statement.  It only applies while reserved_minutes is zero
// and the session is joinable; otherwise ErrNoChange.
func (r *SessionRepo) ReserveStudent(ctx context.Context, q Querier, id string, minutes int, joinedAt time.Time) error {
	n, err := exec(ctx, q, `UPDATE tutoring_sessions
		SET reserved_minutes = ?, student_join_time = COALESCE(student_join_time, ?), updated_at = ?
		WHERE id = ? AND reserved_minutes = 0 AND status IN (?, ?)`,
		minutes, ts(joinedAt), ts(joinedAt), id, string(model.SessionScheduled), string(model.SessionInProgress))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// MarkTutorJoined records the tutor's first join.  ErrNoChange when the
// tutor had already joined.
func (r *SessionRepo) MarkTutorJoined(ctx context.Context, q Querier, id string, joinedAt time.Time, late bool) error {
	n, err := exec(ctx, q, `UPDATE tutoring_sessions SET tutor_join_time = ?, tutor_late = ?, updated_at = ?
		WHERE id = ? AND tutor_join_time IS NULL AND status IN (?, ?)`,
		ts(joinedAt), late, ts(joinedAt), id, string(model.SessionScheduled), string(model.SessionInProgress))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// Start moves a scheduled session to in_progress once the tutor (and,
// when requireStudent is set, the student) has joined.  It reports
// whether the transition happened.
func (r *SessionRepo) Start(ctx context.Context, q Querier, id string, now time.Time, requireStudent bool) (bool, error) {
	query := `UPDATE tutoring_sessions SET status = ?, actual_start_time = ?, updated_at = ?
		WHERE id = ? AND status = ? AND tutor_join_time IS NOT NULL`
	if requireStudent {
		query += ` AND student_join_time IS NOT NULL`
	}
	n, err := exec(ctx, q, query,
		string(model.SessionInProgress), ts(now), ts(now), id, string(model.SessionScheduled))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Complete finalises an in-progress session.  ErrNoChange when the
// session is no longer in progress.
func (r *SessionRepo) Complete(ctx context.Context, q Querier, id string, now time.Time, billable int) error {
	n, err := exec(ctx, q, `UPDATE tutoring_sessions
		SET status = ?, actual_end_time = ?, billable_minutes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(model.SessionCompleted), ts(now), billable, ts(now), id, string(model.SessionInProgress))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// Transition moves a session from one of the from statuses to to,
// recording billable minutes and the reason.  ErrNoChange when the
// session is in none of the from statuses.
func (r *SessionRepo) Transition(ctx context.Context, q Querier, id string, from []model.SessionStatus, to model.SessionStatus, billable int, reason *string, now time.Time) error {
	if len(from) == 0 {
		return ErrNoChange
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := []interface{}{string(to), billable, nullStr(reason), ts(now), id}
	for _, st := range from {
		args = append(args, string(st))
	}
	n, err := exec(ctx, q, `UPDATE tutoring_sessions
		SET status = ?, billable_minutes = ?, status_reason = ?, updated_at = ?
		WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}
