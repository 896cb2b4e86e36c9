package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestTutorAssignmentRepositoryAccept(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "preferred_dates"}).
			AddRow("pending", `{"10/10/2030 às 10:00","11/10/2030 às 14:30"}`))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tutor_assignments`)).
		WithArgs(int64(7), int64(100), "10/10/2030 às 10:00", "accepted", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE lesson_requests SET status = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("accepted", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignment, err := repo.Accept(context.Background(), AcceptParams{
		RequestID:  7,
		TutorID:    100,
		ChosenDate: "10/10/2030 às 10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), assignment.ID)
	assert.Equal(t, "10/10/2030 às 10:00", assignment.ChosenDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryAcceptStatusConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "preferred_dates"}).
			AddRow("confirmed", `{"10/10/2030 às 10:00"}`))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), AcceptParams{
		RequestID:  7,
		TutorID:    100,
		ChosenDate: "10/10/2030 às 10:00",
	})
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryAcceptChosenDateConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "preferred_dates"}).
			AddRow("pending", `{"10/10/2030 às 10:00"}`))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), AcceptParams{
		RequestID:  7,
		TutorID:    100,
		ChosenDate: "25/12/2030 às 09:00",
	})
	assert.ErrorIs(t, err, ErrChosenDateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryAcceptDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "preferred_dates"}).
			AddRow("accepted", `{"10/10/2030 às 10:00"}`))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tutor_assignments`)).
		WithArgs(int64(7), int64(100), "10/10/2030 às 10:00", "accepted", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), AcceptParams{
		RequestID:  7,
		TutorID:    100,
		ChosenDate: "10/10/2030 às 10:00",
	})
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryAcceptMissingRequest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, preferred_dates FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), AcceptParams{RequestID: 99, TutorID: 100, ChosenDate: "10/10/2030 às 10:00"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryCancelLastResetsRequest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("accepted"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, status FROM tutor_assignments WHERE lesson_request_id = $1 AND tutor_id = $2`)).
		WithArgs(int64(7), int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(int64(3), "accepted"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tutor_assignments WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tutor_assignments WHERE lesson_request_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE lesson_requests SET status = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("pending", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	remaining, err := repo.Cancel(context.Background(), 7, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryCancelKeepsAcceptedWhileOthersRemain(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("accepted"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, status FROM tutor_assignments WHERE lesson_request_id = $1 AND tutor_id = $2`)).
		WithArgs(int64(7), int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(int64(3), "accepted"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tutor_assignments WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tutor_assignments WHERE lesson_request_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	remaining, err := repo.Cancel(context.Background(), 7, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorAssignmentRepositoryCancelMissingAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM lesson_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("accepted"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, status FROM tutor_assignments WHERE lesson_request_id = $1 AND tutor_id = $2`)).
		WithArgs(int64(7), int64(100)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), 7, 100)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
