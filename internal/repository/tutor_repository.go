package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
)

const tutorColumns = "id, full_name, email, password_hash, expertise, active, created_at, updated_at"

// TutorRepository handles persistence for tutors.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository creates a new repository instance.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// List returns tutors matching filters with pagination metadata.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	base := "FROM tutors WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"full_name": true, "email": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", tutorColumns, base, sortBy, order, size, offset)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}

	return tutors, total, nil
}

// FindByID returns a tutor by id.
func (r *TutorRepository) FindByID(ctx context.Context, id int64) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE id = $1`, tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByEmail returns a tutor by email.
func (r *TutorRepository) FindByEmail(ctx context.Context, email string) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE LOWER(email) = LOWER($1)`, tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, email); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ExistsByEmail checks uniqueness of a tutor email.
func (r *TutorRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM tutors WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check tutor email: %w", err)
	}
	return true, nil
}

// Create persists a new tutor.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	now := time.Now().UTC()
	tutor.CreatedAt = now
	tutor.UpdatedAt = now
	const query = `INSERT INTO tutors (full_name, email, password_hash, expertise, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		tutor.FullName,
		tutor.Email,
		tutor.PasswordHash,
		tutor.Expertise,
		tutor.Active,
		tutor.CreatedAt,
		tutor.UpdatedAt,
	).Scan(&tutor.ID); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// Update modifies a tutor profile.
func (r *TutorRepository) Update(ctx context.Context, tutor *models.Tutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutors SET full_name = :full_name, expertise = :expertise, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}
	return nil
}

// Deactivate flags a tutor account inactive.
func (r *TutorRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE tutors SET active = FALSE, updated_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate tutor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated tutor rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
