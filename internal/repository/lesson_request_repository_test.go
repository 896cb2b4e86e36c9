package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
)

func TestLessonRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO lesson_requests`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "pending", nil, int64(10), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	request := &models.LessonRequest{
		Reasons:        []string{"reforço"},
		PreferredDates: []string{"10/10/2030 às 10:00"},
		Status:         models.LessonStatusPending,
		SubjectID:      10,
		StudentID:      1,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.Equal(t, int64(42), request.ID)
	assert.False(t, request.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, reason, preferred_dates, status, additional_info, subject_id, student_id, created_at, updated_at FROM lesson_requests WHERE id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reason", "preferred_dates", "status", "additional_info", "subject_id", "student_id", "created_at", "updated_at"}).
			AddRow(int64(42), `{"reforço"}`, `{"10/10/2030 às 10:00"}`, "pending", nil, int64(10), int64(1), now, now))

	request, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusPending, request.Status)
	assert.Equal(t, []string{"10/10/2030 às 10:00"}, []string(request.PreferredDates))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryUpdateDetailsGuardsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE lesson_requests
SET reason = $1, preferred_dates = $2, additional_info = $3, subject_id = $4, updated_at = $5
WHERE id = $6 AND status = $7`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), nil, int64(10), sqlmock.AnyArg(), int64(42), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDetails(context.Background(), &models.LessonRequest{
		ID:             42,
		Reasons:        []string{"outro"},
		PreferredDates: []string{"20/11/2030 às 16:00"},
		SubjectID:      10,
	})
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryUpdateStatusOptimisticGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE lesson_requests
SET status = $1, updated_at = $2
WHERE id = $3 AND status = ANY($4)`)).
		WithArgs("cancelled", sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reason", "preferred_dates", "status", "additional_info", "subject_id", "student_id", "created_at", "updated_at"}).
			AddRow(int64(42), `{"reforço"}`, `{"10/10/2030 às 10:00"}`, "cancelled", nil, int64(10), int64(1), now, now))

	request, err := repo.UpdateStatus(context.Background(), 42,
		[]models.LessonRequestStatus{models.LessonStatusPending}, models.LessonStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusCancelled, request.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryUpdateStatusConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE lesson_requests`)).
		WithArgs("accepted", sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateStatus(context.Background(), 42,
		[]models.LessonRequestStatus{models.LessonStatusPending}, models.LessonStatusAccepted)
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryUpdateStatusPendingAddsAssignmentGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`AND NOT EXISTS (SELECT 1 FROM tutor_assignments WHERE lesson_request_id = $3)`)).
		WithArgs("pending", sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateStatus(context.Background(), 42,
		[]models.LessonRequestStatus{models.LessonStatusAccepted}, models.LessonStatusPending)
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequestRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tutor_assignments WHERE lesson_request_id = $1`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lesson_requests WHERE id = $1`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}
