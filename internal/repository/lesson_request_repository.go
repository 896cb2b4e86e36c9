package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
)

const lessonRequestColumns = "id, reason, preferred_dates, status, additional_info, subject_id, student_id, created_at, updated_at"

// LessonRequestRepository handles persistence for lesson requests.
type LessonRequestRepository struct {
	db *sqlx.DB
}

// NewLessonRequestRepository creates a new repository instance.
func NewLessonRequestRepository(db *sqlx.DB) *LessonRequestRepository {
	return &LessonRequestRepository{db: db}
}

// FindByID returns a lesson request by id.
func (r *LessonRequestRepository) FindByID(ctx context.Context, id int64) (*models.LessonRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_requests WHERE id = $1`, lessonRequestColumns)
	var request models.LessonRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a lesson request enriched with subject and student names.
func (r *LessonRequestRepository) FindDetailByID(ctx context.Context, id int64) (*models.LessonRequestDetail, error) {
	const query = `
SELECT lr.id, lr.reason, lr.preferred_dates, lr.status, lr.additional_info,
       lr.subject_id, lr.student_id, lr.created_at, lr.updated_at,
       s.name AS subject_name, st.full_name AS student_name
FROM lesson_requests lr
JOIN subjects s ON s.id = lr.subject_id
JOIN students st ON st.id = lr.student_id
WHERE lr.id = $1`
	var detail models.LessonRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns lesson requests matching filters with pagination metadata.
func (r *LessonRequestRepository) List(ctx context.Context, filter models.LessonRequestFilter) ([]models.LessonRequestDetail, int, error) {
	base := `
FROM lesson_requests lr
JOIN subjects s ON s.id = lr.subject_id
JOIN students st ON st.id = lr.student_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID > 0 {
		conditions = append(conditions, fmt.Sprintf("lr.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("lr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT lr.id, lr.reason, lr.preferred_dates, lr.status, lr.additional_info,
       lr.subject_id, lr.student_id, lr.created_at, lr.updated_at,
       s.name AS subject_name, st.full_name AS student_name %s ORDER BY lr.created_at %s LIMIT %d OFFSET %d`, base, order, size, offset)
	var requests []models.LessonRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lesson requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lesson requests: %w", err)
	}

	return requests, total, nil
}

// ListByTutor returns lesson requests the tutor holds an assignment on.
func (r *LessonRequestRepository) ListByTutor(ctx context.Context, tutorID int64) ([]models.LessonRequestDetail, error) {
	const query = `
SELECT lr.id, lr.reason, lr.preferred_dates, lr.status, lr.additional_info,
       lr.subject_id, lr.student_id, lr.created_at, lr.updated_at,
       s.name AS subject_name, st.full_name AS student_name
FROM lesson_requests lr
JOIN subjects s ON s.id = lr.subject_id
JOIN students st ON st.id = lr.student_id
JOIN tutor_assignments ta ON ta.lesson_request_id = lr.id
WHERE ta.tutor_id = $1
ORDER BY lr.created_at DESC`
	var requests []models.LessonRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, tutorID); err != nil {
		return nil, fmt.Errorf("list lesson requests by tutor: %w", err)
	}
	return requests, nil
}

// Create persists a new lesson request.
func (r *LessonRequestRepository) Create(ctx context.Context, request *models.LessonRequest) error {
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO lesson_requests (reason, preferred_dates, status, additional_info, subject_id, student_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		request.Reasons,
		request.PreferredDates,
		request.Status,
		request.Note,
		request.SubjectID,
		request.StudentID,
		request.CreatedAt,
		request.UpdatedAt,
	).Scan(&request.ID); err != nil {
		return fmt.Errorf("create lesson request: %w", err)
	}
	return nil
}

// UpdateDetails rewrites the editable fields of a request still in pending
// status. The status guard runs inside the UPDATE so a concurrent acceptance
// cannot slip in between read and write.
func (r *LessonRequestRepository) UpdateDetails(ctx context.Context, request *models.LessonRequest) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lesson_requests
SET reason = $1, preferred_dates = $2, additional_info = $3, subject_id = $4, updated_at = $5
WHERE id = $6 AND status = $7`
	result, err := r.db.ExecContext(ctx, query,
		request.Reasons,
		request.PreferredDates,
		request.Note,
		request.SubjectID,
		request.UpdatedAt,
		request.ID,
		models.LessonStatusPending,
	)
	if err != nil {
		return fmt.Errorf("update lesson request details: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated lesson request rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// UpdateStatus moves the request to the target status only if the current
// status is still one of the expected values. A transition into pending is
// additionally rejected while any assignment remains, regardless of what the
// caller observed before.
func (r *LessonRequestRepository) UpdateStatus(ctx context.Context, id int64, from []models.LessonRequestStatus, to models.LessonRequestStatus) (*models.LessonRequest, error) {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}

	query := `UPDATE lesson_requests
SET status = $1, updated_at = $2
WHERE id = $3 AND status = ANY($4)`
	if to == models.LessonStatusPending {
		query += ` AND NOT EXISTS (SELECT 1 FROM tutor_assignments WHERE lesson_request_id = $3)`
	}
	query += fmt.Sprintf(` RETURNING %s`, lessonRequestColumns)

	var request models.LessonRequest
	err := r.db.GetContext(ctx, &request, query, to, time.Now().UTC(), id, pq.Array(expected))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update lesson request status: %w", err)
	}
	return &request, nil
}

// Delete removes a lesson request together with its assignments.
func (r *LessonRequestRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lesson request delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tutor_assignments WHERE lesson_request_id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson request assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM lesson_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted lesson request rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson request delete: %w", err)
	}
	return nil
}
