package model

import "time"

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// SessionProposal is a student's request for a 1:1 session with a tutor.
// It is transitioned exactly once, by the addressed tutor, and is
// immutable afterwards.
type SessionProposal struct {
	ID            string         `json:"id"`                       // session_proposals.id
	StudentID     string         `json:"student_id"`               // session_proposals.student_id
	TutorID       string         `json:"tutor_id"`                 // session_proposals.tutor_id
	CourseID      string         `json:"course_id"`                // session_proposals.course_id
	ProposedStart time.Time      `json:"proposed_start"`           // session_proposals.proposed_start
	ProposedEnd   time.Time      `json:"proposed_end"`             // session_proposals.proposed_end
	Status        ProposalStatus `json:"status"`                   // session_proposals.status
	TutorResponse *string        `json:"tutor_response,omitempty"` // session_proposals.tutor_response (nullable)
	CreatedAt     time.Time      `json:"created_at"`               // session_proposals.created_at
	UpdatedAt     time.Time      `json:"updated_at"`               // session_proposals.updated_at
}
