package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
)

type tutorRepository interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	FindByID(ctx context.Context, id int64) (*models.Tutor, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, tutor *models.Tutor) error
	Update(ctx context.Context, tutor *models.Tutor) error
	Deactivate(ctx context.Context, id int64) error
}

// RegisterTutorRequest captures fields for tutor registration.
type RegisterTutorRequest struct {
	FullName  string   `json:"full_name" validate:"required,min=2,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	Expertise []string `json:"expertise" validate:"required,min=1,dive,min=2"`
}

// UpdateTutorRequest modifies tutor profile fields.
type UpdateTutorRequest struct {
	FullName  string   `json:"full_name" validate:"required,min=2,max=120"`
	Expertise []string `json:"expertise" validate:"required,min=1,dive,min=2"`
}

// TutorService handles tutor account workflows.
type TutorService struct {
	repo      tutorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorService creates a new tutor service.
func NewTutorService(repo tutorRepository, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated tutors.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	tutors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return tutors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a tutor by identifier.
func (s *TutorService) Get(ctx context.Context, id int64) (*models.Tutor, error) {
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	return tutor, nil
}

// Register creates a new tutor account with a hashed password.
func (s *TutorService) Register(ctx context.Context, req RegisterTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tutor email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	tutor := &models.Tutor{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		PasswordHash: string(hash),
		Expertise:    req.Expertise,
		Active:       true,
	}
	if err := s.repo.Create(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutor")
	}

	s.logger.Info("tutor registered", zap.Int64("tutor_id", tutor.ID))
	return tutor, nil
}

// Update modifies a tutor profile.
func (s *TutorService) Update(ctx context.Context, id int64, req UpdateTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}

	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	tutor.FullName = strings.TrimSpace(req.FullName)
	tutor.Expertise = req.Expertise

	if err := s.repo.Update(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tutor")
	}
	return tutor, nil
}

// Deactivate disables a tutor account.
func (s *TutorService) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate tutor")
	}
	return nil
}
