package model

import "time"

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionPostponed  SessionStatus = "postponed"
	SessionMissed     SessionStatus = "missed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled || s == SessionMissed
}

// TutoringSession is a scheduled meeting between a tutor and either one
// student (1:1) or a group of registered attendees.  For group sessions
// StudentID is nil and per-student state lives in SessionAttendance.
//
// Fields:
//  ScheduledMinutes – length of the scheduled window; the amount reserved
//                     from the student's wallet at join time.
//  ReservedMinutes  – minutes deducted at join (1:1 only).  A non-zero
//                     value marks the student as already charged.
//  BillableMinutes  – final charged minutes, never above ScheduledMinutes.
//  TutorLate        – tutor joined more than ten minutes after the start.
//  StatusReason     – free text supplied with postpone/cancel.
type TutoringSession struct {
	ID               string        `json:"id"`                          // tutoring_sessions.id
	TutorID          string        `json:"tutor_id"`                    // tutoring_sessions.tutor_id
	StudentID        *string       `json:"student_id,omitempty"`        // tutoring_sessions.student_id (nullable)
	CourseID         string        `json:"course_id"`                   // tutoring_sessions.course_id
	ProposalID       *string       `json:"proposal_id,omitempty"`       // tutoring_sessions.proposal_id (nullable)
	ScheduledStart   time.Time     `json:"scheduled_start"`             // tutoring_sessions.scheduled_start
	ScheduledEnd     time.Time     `json:"scheduled_end"`               // tutoring_sessions.scheduled_end
	ScheduledMinutes int           `json:"scheduled_minutes"`           // tutoring_sessions.scheduled_minutes
	Status           SessionStatus `json:"status"`                      // tutoring_sessions.status
	IsGroupSession   bool          `json:"is_group_session"`            // tutoring_sessions.is_group_session
	TutorJoinTime    *time.Time    `json:"tutor_join_time,omitempty"`   // tutoring_sessions.tutor_join_time
	StudentJoinTime  *time.Time    `json:"student_join_time,omitempty"` // tutoring_sessions.student_join_time
	TutorLate        bool          `json:"tutor_late"`                  // tutoring_sessions.tutor_late
	ActualStartTime  *time.Time    `json:"actual_start_time,omitempty"` // tutoring_sessions.actual_start_time
	ActualEndTime    *time.Time    `json:"actual_end_time,omitempty"`   // tutoring_sessions.actual_end_time
	ReservedMinutes  int           `json:"reserved_minutes"`            // tutoring_sessions.reserved_minutes
	BillableMinutes  int           `json:"billable_minutes"`            // tutoring_sessions.billable_minutes
	Notes            string        `json:"notes"`                       // tutoring_sessions.notes
	StatusReason     *string       `json:"status_reason,omitempty"`     // tutoring_sessions.status_reason
	CreatedAt        time.Time     `json:"created_at"`                  // tutoring_sessions.created_at
	UpdatedAt        time.Time     `json:"updated_at"`                  // tutoring_sessions.updated_at
}

// WindowMinutes returns the whole minutes between start and end.
func WindowMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// CeilMinutes rounds a duration up to whole minutes.  Negative durations
// yield zero.
func CeilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}

// SessionAttendance tracks one registered student of a group session.
// ReservedMinutes > 0 marks the student as already charged for the
// session.
type SessionAttendance struct {
	ID              string     `json:"id"`                   // session_attendance.id
	SessionID       string     `json:"session_id"`           // session_attendance.session_id
	StudentID       string     `json:"student_id"`           // session_attendance.student_id
	JoinTime        *time.Time `json:"join_time,omitempty"`  // session_attendance.join_time
	LeaveTime       *time.Time `json:"leave_time,omitempty"` // session_attendance.leave_time
	Attended        bool       `json:"attended"`             // session_attendance.attended
	ReservedMinutes int        `json:"reserved_minutes"`     // session_attendance.reserved_minutes
	ConsumedMinutes int        `json:"consumed_minutes"`     // session_attendance.consumed_minutes
	CreatedAt       time.Time  `json:"created_at"`           // session_attendance.created_at
}
