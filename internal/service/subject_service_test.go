package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
)

type subjectRepoStub struct {
	subjects     map[int64]*models.Subject
	nextID       int64
	requestCount map[int64]int
	deleted      []int64
}

func newSubjectRepoStub() *subjectRepoStub {
	return &subjectRepoStub{
		subjects:     make(map[int64]*models.Subject),
		nextID:       1,
		requestCount: make(map[int64]int),
	}
}

func (s *subjectRepoStub) seed(name string) *models.Subject {
	subject := &models.Subject{ID: s.nextID, Name: name}
	s.subjects[subject.ID] = subject
	s.nextID++
	return subject
}

func (s *subjectRepoStub) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	out := make([]models.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		out = append(out, *subject)
	}
	return out, len(out), nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		copied := *subject
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	for _, subject := range s.subjects {
		if subject.Name == name && subject.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = s.nextID
	s.nextID++
	copied := *subject
	s.subjects[subject.ID] = &copied
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	copied := *subject
	s.subjects[subject.ID] = &copied
	return nil
}

func (s *subjectRepoStub) Delete(ctx context.Context, id int64) error {
	delete(s.subjects, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *subjectRepoStub) CountLessonRequests(ctx context.Context, id int64) (int, error) {
	return s.requestCount[id], nil
}

func TestSubjectCreateTrimsAndChecksUniqueness(t *testing.T) {
	repo := newSubjectRepoStub()
	repo.seed("Matemática")
	svc := NewSubjectService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "  Matemática  "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "  Física "})
	require.NoError(t, err)
	assert.Equal(t, "Física", subject.Name)
	assert.NotZero(t, subject.ID)
}

func TestSubjectUpdateAllowsKeepingOwnName(t *testing.T) {
	repo := newSubjectRepoStub()
	seeded := repo.seed("Química")
	svc := NewSubjectService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), seeded.ID, UpdateSubjectRequest{Name: "Química"})
	require.NoError(t, err)
	assert.Equal(t, "Química", updated.Name)
}

func TestSubjectDeleteBlockedByLessonRequests(t *testing.T) {
	repo := newSubjectRepoStub()
	seeded := repo.seed("História")
	repo.requestCount[seeded.ID] = 2
	svc := NewSubjectService(repo, nil, nil)

	err := svc.Delete(context.Background(), seeded.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestSubjectDeleteUnknown(t *testing.T) {
	repo := newSubjectRepoStub()
	svc := NewSubjectService(repo, nil, nil)

	err := svc.Delete(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
