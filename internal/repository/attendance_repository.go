package repository

import (
	"context"
	"time"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type attendanceRecord struct {
	ID              string `db:"id"`
	SessionID       string `db:"session_id"`
	StudentID       string `db:"student_id"`
	JoinTime        dbTime `db:"join_time"`
	LeaveTime       dbTime `db:"leave_time"`
	Attended        bool   `db:"attended"`
	ReservedMinutes int    `db:"reserved_minutes"`
	ConsumedMinutes int    `db:"consumed_minutes"`
	CreatedAt       dbTime `db:"created_at"`
}

func (r attendanceRecord) model() model.SessionAttendance {
	return model.SessionAttendance{
		ID:              r.ID,
		SessionID:       r.SessionID,
		StudentID:       r.StudentID,
		JoinTime:        r.JoinTime.ptr(),
		LeaveTime:       r.LeaveTime.ptr(),
		Attended:        r.Attended,
		ReservedMinutes: r.ReservedMinutes,
		ConsumedMinutes: r.ConsumedMinutes,
		CreatedAt:       r.CreatedAt.Time,
	}
}

const attendanceColumns = `id, session_id, student_id, join_time, leave_time, attended, reserved_minutes, consumed_minutes, created_at`

// AttendanceRepo manages session_attendance rows for group sessions.
type AttendanceRepo struct{}

// Register adds a student to a session.  ErrDuplicate when the student is
// already registered.
func (r *AttendanceRepo) Register(ctx context.Context, q Querier, a *model.SessionAttendance) error {
	_, err := exec(ctx, q, `INSERT INTO session_attendance (`+attendanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.StudentID, tsPtr(a.JoinTime), tsPtr(a.LeaveTime), a.Attended,
		a.ReservedMinutes, a.ConsumedMinutes, ts(a.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Get returns the attendance row of studentID in sessionID.
func (r *AttendanceRepo) Get(ctx context.Context, q Querier, sessionID, studentID string) (*model.SessionAttendance, error) {
	var rec attendanceRecord
	err := get(ctx, q, &rec, `SELECT `+attendanceColumns+` FROM session_attendance WHERE session_id = ? AND student_id = ?`,
		sessionID, studentID)
	if err != nil {
		return nil, err
	}
	a := rec.model()
	return &a, nil
}

// ListBySession returns every registered student of a session in
// registration order.
func (r *AttendanceRepo) ListBySession(ctx context.Context, q Querier, sessionID string) ([]model.SessionAttendance, error) {
	var recs []attendanceRecord
	if err := selectAll(ctx, q, &recs, `SELECT `+attendanceColumns+` FROM session_attendance
		WHERE session_id = ? ORDER BY created_at, id`, sessionID); err != nil {
		return nil, err
	}
	out := make([]model.SessionAttendance, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.model())
	}
	return out, nil
}

// Reserve marks an attendee as joined and charged.  Only the first call
// for a given attendee takes effect; later calls get ErrNoChange.
func (r *AttendanceRepo) Reserve(ctx context.Context, q Querier, sessionID, studentID string, minutes int, joinedAt time.Time) error {
	n, err := exec(ctx, q, `UPDATE session_attendance
		SET reserved_minutes = ?, attended = ?, join_time = COALESCE(join_time, ?)
		WHERE session_id = ? AND student_id = ? AND reserved_minutes = 0`,
		minutes, true, ts(joinedAt), sessionID, studentID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// Leave stamps the leave time and consumed minutes of an attendee that
// joined and has not left yet.  ErrNoChange otherwise.
func (r *AttendanceRepo) Leave(ctx context.Context, q Querier, sessionID, studentID string, leftAt time.Time, consumed int) error {
	n, err := exec(ctx, q, `UPDATE session_attendance SET leave_time = ?, consumed_minutes = ?
		WHERE session_id = ? AND student_id = ? AND join_time IS NOT NULL AND leave_time IS NULL`,
		ts(leftAt), consumed, sessionID, studentID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// SetConsumed overwrites the consumed minutes of one attendee.  Used by
// no-show charges and refunds.
func (r *AttendanceRepo) SetConsumed(ctx context.Context, q Querier, sessionID, studentID string, minutes int) error {
	n, err := exec(ctx, q, `UPDATE session_attendance SET consumed_minutes = ? WHERE session_id = ? AND student_id = ?`,
		minutes, sessionID, studentID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
