package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
)

type studentAccountStub struct {
	students map[string]*models.Student
}

func (s studentAccountStub) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	for _, student := range s.students {
		if student.ID == id {
			return student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s studentAccountStub) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	if student, ok := s.students[email]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type tutorAccountStub struct {
	tutors map[string]*models.Tutor
}

func (s tutorAccountStub) FindByID(ctx context.Context, id int64) (*models.Tutor, error) {
	for _, tutor := range s.tutors {
		if tutor.ID == id {
			return tutor, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s tutorAccountStub) FindByEmail(ctx context.Context, email string) (*models.Tutor, error) {
	if tutor, ok := s.tutors[email]; ok {
		return tutor, nil
	}
	return nil, sql.ErrNoRows
}

type tokenStoreStub struct {
	tokens map[string]*models.RefreshToken
}

func newTokenStoreStub() *tokenStoreStub {
	return &tokenStoreStub{tokens: make(map[string]*models.RefreshToken)}
}

func (s *tokenStoreStub) Save(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *tokenStoreStub) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (s *tokenStoreStub) Revoke(ctx context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *tokenStoreStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("sup3rsecret"), bcrypt.MinCost)
	require.NoError(t, err)

	students := studentAccountStub{students: map[string]*models.Student{
		"ana@example.com": {ID: 1, FullName: "Ana", Email: "ana@example.com", PasswordHash: string(hash), Active: true},
	}}
	tutors := tutorAccountStub{tutors: map[string]*models.Tutor{
		"bruno@example.com": {ID: 100, FullName: "Bruno", Email: "bruno@example.com", PasswordHash: string(hash), Active: true},
		"carla@example.com": {ID: 200, FullName: "Carla", Email: "carla@example.com", PasswordHash: string(hash), Active: false},
	}}
	tokens := newTokenStoreStub()

	svc := NewAuthService(students, tutors, tokens, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "orion-tutoring-api",
	})
	return svc, tokens
}

func TestLoginStudentIssuesTokenPair(t *testing.T) {
	svc, tokens := newAuthFixture(t)

	res, err := svc.LoginStudent(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Len(t, tokens.tokens, 1)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginTutorWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.LoginTutor(context.Background(), models.LoginRequest{Email: "bruno@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginTutorInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.LoginTutor(context.Background(), models.LoginRequest{Email: "carla@example.com", Password: "sup3rsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginStudentUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.LoginStudent(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "sup3rsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, tokens := newAuthFixture(t)

	login, err := svc.LoginTutor(context.Background(), models.LoginRequest{Email: "bruno@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, found := tokens.tokens[login.RefreshToken]
	assert.False(t, found, "used refresh token should be revoked")

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesOwnToken(t *testing.T) {
	svc, tokens := newAuthFixture(t)

	login, err := svc.LoginStudent(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, 1))
	assert.Empty(t, tokens.tokens)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	login, err := svc.LoginStudent(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, 999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
