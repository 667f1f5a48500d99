package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type proposalRecord struct {
	ID            string         `db:"id"`
	StudentID     string         `db:"student_id"`
	TutorID       string         `db:"tutor_id"`
	CourseID      string         `db:"course_id"`
	ProposedStart dbTime         `db:"proposed_start"`
	ProposedEnd   dbTime         `db:"proposed_end"`
	Status        string         `db:"status"`
	TutorResponse sql.NullString `db:"tutor_response"`
	CreatedAt     dbTime         `db:"created_at"`
	UpdatedAt     dbTime         `db:"updated_at"`
}

func (r proposalRecord) model() model.SessionProposal {
	return model.SessionProposal{
		ID:            r.ID,
		StudentID:     r.StudentID,
		TutorID:       r.TutorID,
		CourseID:      r.CourseID,
		ProposedStart: r.ProposedStart.Time,
		ProposedEnd:   r.ProposedEnd.Time,
		Status:        model.ProposalStatus(r.Status),
		TutorResponse: strPtr(r.TutorResponse),
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}
}

const proposalColumns = `id, student_id, tutor_id, course_id, proposed_start, proposed_end, status, tutor_response, created_at, updated_at`

// ProposalRepo manages the session_proposals table.
type ProposalRepo struct{}

// Create inserts a pending proposal.
func (r *ProposalRepo) Create(ctx context.Context, q Querier, p *model.SessionProposal) error {
	_, err := exec(ctx, q, `INSERT INTO session_proposals (`+proposalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.TutorID, p.CourseID, ts(p.ProposedStart), ts(p.ProposedEnd),
		string(p.Status), nullStr(p.TutorResponse), ts(p.CreatedAt), ts(p.UpdatedAt))
	return err
}

// GetByID returns one proposal.  ErrNotFound when missing.
func (r *ProposalRepo) GetByID(ctx context.Context, q Querier, id string) (*model.SessionProposal, error) {
	var rec proposalRecord
	if err := get(ctx, q, &rec, `SELECT `+proposalColumns+` FROM session_proposals WHERE id = ?`, id); err != nil {
		return nil, err
	}
	p := rec.model()
	return &p, nil
}

// ListForUser returns proposals where userID is the student or the
// tutor, newest first.  An empty status matches every status.
func (r *ProposalRepo) ListForUser(ctx context.Context, q Querier, userID string, status model.ProposalStatus) ([]model.SessionProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM session_proposals WHERE (student_id = ? OR tutor_id = ?)`
	args := []interface{}{userID, userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`
	var recs []proposalRecord
	if err := selectAll(ctx, q, &recs, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.SessionProposal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.model())
	}
	return out, nil
}

// ResolvePending moves a pending proposal to status.  The update only
// applies while the row is still pending, so two concurrent resolutions
// cannot both succeed: the loser gets ErrNoChange.
func (r *ProposalRepo) ResolvePending(ctx context.Context, q Querier, id string, status model.ProposalStatus, response *string, now time.Time) error {
	n, err := exec(ctx, q, `UPDATE session_proposals SET status = ?, tutor_response = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), nullStr(response), ts(now), id, string(model.ProposalPending))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}
