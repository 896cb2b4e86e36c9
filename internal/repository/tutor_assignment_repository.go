package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique constraint failures.
const pgUniqueViolation = "23505"

// TutorAssignmentRepository persists tutor claims on lesson requests.
type TutorAssignmentRepository struct {
	db *sqlx.DB
}

// NewTutorAssignmentRepository constructs the repository.
func NewTutorAssignmentRepository(db *sqlx.DB) *TutorAssignmentRepository {
	return &TutorAssignmentRepository{db: db}
}

// ListByRequest returns assignments attached to a lesson request.
func (r *TutorAssignmentRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.TutorAssignmentDetail, error) {
	const query = `
SELECT ta.id, ta.lesson_request_id, ta.tutor_id, ta.chosen_date, ta.status, ta.created_at, ta.updated_at,
       t.full_name AS tutor_name
FROM tutor_assignments ta
JOIN tutors t ON t.id = ta.tutor_id
WHERE ta.lesson_request_id = $1
ORDER BY ta.created_at ASC`
	var assignments []models.TutorAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, requestID); err != nil {
		return nil, fmt.Errorf("list assignments by request: %w", err)
	}
	return assignments, nil
}

// ListByTutor returns assignments held by the tutor.
func (r *TutorAssignmentRepository) ListByTutor(ctx context.Context, tutorID int64) ([]models.TutorAssignment, error) {
	const query = `
SELECT id, lesson_request_id, tutor_id, chosen_date, status, created_at, updated_at
FROM tutor_assignments
WHERE tutor_id = $1
ORDER BY created_at DESC`
	var assignments []models.TutorAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, tutorID); err != nil {
		return nil, fmt.Errorf("list assignments by tutor: %w", err)
	}
	return assignments, nil
}

// FindByRequestAndTutor returns the single assignment for the pair, if any.
func (r *TutorAssignmentRepository) FindByRequestAndTutor(ctx context.Context, requestID, tutorID int64) (*models.TutorAssignment, error) {
	const query = `
SELECT id, lesson_request_id, tutor_id, chosen_date, status, created_at, updated_at
FROM tutor_assignments
WHERE lesson_request_id = $1 AND tutor_id = $2`
	var assignment models.TutorAssignment
	if err := r.db.GetContext(ctx, &assignment, query, requestID, tutorID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CountByRequest returns the number of assignments on a request.
func (r *TutorAssignmentRepository) CountByRequest(ctx context.Context, requestID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM tutor_assignments WHERE lesson_request_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, requestID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

// AcceptParams holds the values required to record a tutor acceptance.
type AcceptParams struct {
	RequestID  int64
	TutorID    int64
	ChosenDate string
}

// Accept records a tutor claim and promotes the request to accepted as one
// atomic unit. The lesson request row is locked for the duration so two
// concurrent acceptances serialize; status and chosen-date preconditions are
// re-verified against the locked row, with the (request, tutor) uniqueness
// constraint as storage-level backstop.
func (r *TutorAssignmentRepository) Accept(ctx context.Context, params AcceptParams) (assignment *models.TutorAssignment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		Status         models.LessonRequestStatus `db:"status"`
		PreferredDates pq.StringArray             `db:"preferred_dates"`
	}
	const lockQuery = `SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, params.RequestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock lesson request: %w", err)
	}

	if current.Status != models.LessonStatusPending && current.Status != models.LessonStatusAccepted {
		err = ErrStatusConflict
		return nil, err
	}

	dateOK := false
	for _, d := range current.PreferredDates {
		if d == params.ChosenDate {
			dateOK = true
			break
		}
	}
	if !dateOK {
		err = ErrChosenDateConflict
		return nil, err
	}

	now := time.Now().UTC()
	created := &models.TutorAssignment{
		LessonRequestID: params.RequestID,
		TutorID:         params.TutorID,
		ChosenDate:      params.ChosenDate,
		Status:          models.AssignmentStatusAccepted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	const insertQuery = `INSERT INTO tutor_assignments (lesson_request_id, tutor_id, chosen_date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertQuery,
		created.LessonRequestID,
		created.TutorID,
		created.ChosenDate,
		created.Status,
		created.CreatedAt,
		created.UpdatedAt,
	).Scan(&created.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			err = ErrDuplicateAssignment
		} else {
			err = fmt.Errorf("insert tutor assignment: %w", err)
		}
		return nil, err
	}

	const statusQuery = `UPDATE lesson_requests SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err = tx.ExecContext(ctx, statusQuery, models.LessonStatusAccepted, now, params.RequestID); err != nil {
		return nil, fmt.Errorf("promote lesson request status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept transaction: %w", err)
	}
	return created, nil
}

// Cancel removes the tutor's assignment and recomputes the aggregate status
// inside one transaction. The request reverts to pending only when the last
// assignment is gone; the decision is made from a fresh count after the
// delete, never inferred from the removed row.
func (r *TutorAssignmentRepository) Cancel(ctx context.Context, requestID, tutorID int64) (remaining int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var requestStatus models.LessonRequestStatus
	const lockQuery = `SELECT status FROM lesson_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &requestStatus, lockQuery, requestID); err != nil {
		if err == sql.ErrNoRows {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("lock lesson request: %w", err)
	}

	var assignment struct {
		ID     int64                   `db:"id"`
		Status models.AssignmentStatus `db:"status"`
	}
	const findQuery = `SELECT id, status FROM tutor_assignments WHERE lesson_request_id = $1 AND tutor_id = $2`
	if err = tx.GetContext(ctx, &assignment, findQuery, requestID, tutorID); err != nil {
		if err == sql.ErrNoRows {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("find tutor assignment: %w", err)
	}

	if assignment.Status != models.AssignmentStatusAccepted {
		err = ErrStatusConflict
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM tutor_assignments WHERE id = $1`, assignment.ID); err != nil {
		return 0, fmt.Errorf("delete tutor assignment: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM tutor_assignments WHERE lesson_request_id = $1`
	if err = tx.GetContext(ctx, &remaining, countQuery, requestID); err != nil {
		return 0, fmt.Errorf("count remaining assignments: %w", err)
	}

	if remaining == 0 {
		const resetQuery = `UPDATE lesson_requests SET status = $1, updated_at = $2 WHERE id = $3`
		if _, err = tx.ExecContext(ctx, resetQuery, models.LessonStatusPending, time.Now().UTC(), requestID); err != nil {
			return 0, fmt.Errorf("reset lesson request status: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cancel transaction: %w", err)
	}
	return remaining, nil
}
