package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/repository"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
)

type lessonRequestStore interface {
	FindByID(ctx context.Context, id int64) (*models.LessonRequest, error)
	FindDetailByID(ctx context.Context, id int64) (*models.LessonRequestDetail, error)
	List(ctx context.Context, filter models.LessonRequestFilter) ([]models.LessonRequestDetail, int, error)
	ListByTutor(ctx context.Context, tutorID int64) ([]models.LessonRequestDetail, error)
	Create(ctx context.Context, request *models.LessonRequest) error
	UpdateDetails(ctx context.Context, request *models.LessonRequest) error
	UpdateStatus(ctx context.Context, id int64, from []models.LessonRequestStatus, to models.LessonRequestStatus) (*models.LessonRequest, error)
	Delete(ctx context.Context, id int64) error
}

type assignmentStore interface {
	ListByRequest(ctx context.Context, requestID int64) ([]models.TutorAssignmentDetail, error)
	FindByRequestAndTutor(ctx context.Context, requestID, tutorID int64) (*models.TutorAssignment, error)
	CountByRequest(ctx context.Context, requestID int64) (int, error)
	Accept(ctx context.Context, params repository.AcceptParams) (*models.TutorAssignment, error)
	Cancel(ctx context.Context, requestID, tutorID int64) (int, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type tutorReader interface {
	FindByID(ctx context.Context, id int64) (*models.Tutor, error)
}

type lessonCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type transitionRecorder interface {
	RecordLessonTransition(from, to models.LessonRequestStatus)
	RecordCacheOperation(hit bool)
}

// CreateLessonRequest describes the payload for opening a lesson request.
type CreateLessonRequest struct {
	Reasons        []string `json:"reason" validate:"required,min=1"`
	PreferredDates []string `json:"preferred_dates" validate:"required,min=1,max=3"`
	SubjectID      int64    `json:"subject_id" validate:"required"`
	AdditionalInfo string   `json:"additional_info"`
}

// UpdateLessonRequest describes the editable fields of a pending request.
type UpdateLessonRequest struct {
	Reasons        []string `json:"reason" validate:"required,min=1"`
	PreferredDates []string `json:"preferred_dates" validate:"required,min=1,max=3"`
	SubjectID      int64    `json:"subject_id" validate:"required"`
	AdditionalInfo string   `json:"additional_info"`
}

// LessonRequestView is the display projection of a request and its assignments.
type LessonRequestView struct {
	models.LessonRequestDetail
	Assignments []models.TutorAssignmentDetail `json:"assignments"`
}

// LessonRequestService is the lifecycle engine: the single place where
// status transitions and tutor-assignment mutations are decided.
type LessonRequestService struct {
	requests    lessonRequestStore
	assignments assignmentStore
	subjects    subjectReader
	students    studentReader
	tutors      tutorReader
	cache       lessonCache
	cacheTTL    time.Duration
	metrics     transitionRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// LessonRequestServiceOption configures optional collaborators.
type LessonRequestServiceOption func(*LessonRequestService)

// WithLessonCache enables the display-read cache.
func WithLessonCache(cache lessonCache, ttl time.Duration) LessonRequestServiceOption {
	return func(s *LessonRequestService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTransitionRecorder wires lifecycle metrics.
func WithTransitionRecorder(recorder transitionRecorder) LessonRequestServiceOption {
	return func(s *LessonRequestService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// NewLessonRequestService creates a service instance.
func NewLessonRequestService(
	requests lessonRequestStore,
	assignments assignmentStore,
	subjects subjectReader,
	students studentReader,
	tutors tutorReader,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...LessonRequestServiceOption,
) *LessonRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LessonRequestService{
		requests:    requests,
		assignments: assignments,
		subjects:    subjects,
		students:    students,
		tutors:      tutors,
		cacheTTL:    5 * time.Minute,
		validator:   validate,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create validates and persists a new lesson request with status pending.
// Subject and student are resolved concurrently.
func (s *LessonRequestService) Create(ctx context.Context, studentID int64, req CreateLessonRequest) (*models.LessonRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson request payload")
	}
	if err := validateLessonContent(req.Reasons, req.PreferredDates, req.AdditionalInfo); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.subjects.FindByID(gctx, req.SubjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.students.FindByID(gctx, studentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	request := &models.LessonRequest{
		Reasons:        append([]string(nil), req.Reasons...),
		PreferredDates: append([]string(nil), req.PreferredDates...),
		Status:         models.LessonStatusPending,
		Note:           optionalNote(req.AdditionalInfo),
		SubjectID:      req.SubjectID,
		StudentID:      studentID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson request")
	}
	s.logger.Info("lesson request created",
		zap.Int64("request_id", request.ID),
		zap.Int64("student_id", studentID),
	)
	return request, nil
}

// Accept records a tutor claim on the request with one of the preferred dates.
// Pre-conditions are checked up front for precise error reporting and
// re-verified inside the repository transaction under a row lock.
func (s *LessonRequestService) Accept(ctx context.Context, requestID, tutorID int64, chosenDate string) error {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson request")
	}
	if request.Status != models.LessonStatusPending && request.Status != models.LessonStatusAccepted {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("cannot accept a request in status %q", request.Status))
	}

	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if !tutor.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "tutor account is inactive")
	}

	if _, err := s.assignments.FindByRequestAndTutor(ctx, requestID, tutorID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicateAssignment, "tutor already linked to this request")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
	}

	if !request.HasPreferredDate(chosenDate) {
		return appErrors.Clone(appErrors.ErrInvalidChosenDate, fmt.Sprintf("%q is not among the preferred dates", chosenDate))
	}

	if _, err := s.assignments.Accept(ctx, repository.AcceptParams{
		RequestID:  requestID,
		TutorID:    tutorID,
		ChosenDate: chosenDate,
	}); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		case errors.Is(err, repository.ErrStatusConflict):
			return appErrors.Clone(appErrors.ErrInvalidStatus, "request moved past acceptance concurrently")
		case errors.Is(err, repository.ErrChosenDateConflict):
			return appErrors.Clone(appErrors.ErrInvalidChosenDate, fmt.Sprintf("%q is not among the preferred dates", chosenDate))
		case errors.Is(err, repository.ErrDuplicateAssignment):
			return appErrors.Clone(appErrors.ErrDuplicateAssignment, "tutor already linked to this request")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept lesson request")
		}
	}

	if s.metrics != nil && request.Status == models.LessonStatusPending {
		s.metrics.RecordLessonTransition(models.LessonStatusPending, models.LessonStatusAccepted)
	}
	s.invalidateDetail(ctx, requestID)
	s.logger.Info("lesson request accepted",
		zap.Int64("request_id", requestID),
		zap.Int64("tutor_id", tutorID),
		zap.String("chosen_date", chosenDate),
	)
	return nil
}

// CancelAssignment withdraws a tutor from the request. The aggregate status
// reverts to pending only when the transaction observes zero remaining
// assignments after the delete.
func (s *LessonRequestService) CancelAssignment(ctx context.Context, requestID, tutorID int64) error {
	remaining, err := s.assignments.Cancel(ctx, requestID, tutorID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		case errors.Is(err, repository.ErrStatusConflict):
			return appErrors.Clone(appErrors.ErrInvalidStatus, "assignment is not in accepted status")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
		}
	}

	if s.metrics != nil && remaining == 0 {
		s.metrics.RecordLessonTransition(models.LessonStatusAccepted, models.LessonStatusPending)
	}
	s.invalidateDetail(ctx, requestID)
	s.logger.Info("tutor assignment cancelled",
		zap.Int64("request_id", requestID),
		zap.Int64("tutor_id", tutorID),
		zap.Int("remaining_assignments", remaining),
	)
	return nil
}

// UpdateStatus applies a direct status edit after checking the transition
// table. Reverting to pending is reserved for the zero-assignment path of
// CancelAssignment and is rejected here while assignments remain.
func (s *LessonRequestService) UpdateStatus(ctx context.Context, requestID int64, newStatus models.LessonRequestStatus) (*models.LessonRequest, error) {
	if !newStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", newStatus))
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson request")
	}

	if !request.Status.CanTransitionTo(newStatus) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot move lesson request from %q to %q", request.Status, newStatus))
	}

	if newStatus == models.LessonStatusPending {
		count, err := s.assignments.CountByRequest(ctx, requestID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "request still has active assignments")
		}
	}

	updated, err := s.requests.UpdateStatus(ctx, requestID, []models.LessonRequestStatus{request.Status}, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "lesson request was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson request status")
	}

	if s.metrics != nil {
		s.metrics.RecordLessonTransition(request.Status, newStatus)
	}
	s.invalidateDetail(ctx, requestID)
	s.logger.Info("lesson request status updated",
		zap.Int64("request_id", requestID),
		zap.String("from", string(request.Status)),
		zap.String("to", string(newStatus)),
	)
	return updated, nil
}

// UpdateDetails edits reason, dates, note and subject of a request that is
// still pending. Edits after any tutor has engaged are rejected.
func (s *LessonRequestService) UpdateDetails(ctx context.Context, requestID int64, req UpdateLessonRequest) (*models.LessonRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson request payload")
	}
	if err := validateLessonContent(req.Reasons, req.PreferredDates, req.AdditionalInfo); err != nil {
		return nil, err
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson request")
	}
	if request.Status != models.LessonStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "details can only be edited while the request is pending")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	request.Reasons = append([]string(nil), req.Reasons...)
	request.PreferredDates = append([]string(nil), req.PreferredDates...)
	request.Note = optionalNote(req.AdditionalInfo)
	request.SubjectID = req.SubjectID

	if err := s.requests.UpdateDetails(ctx, request); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "request left pending status concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson request")
	}

	s.invalidateDetail(ctx, requestID)
	return request, nil
}

// Get returns the display projection of a request, served from cache when warm.
func (s *LessonRequestService) Get(ctx context.Context, requestID int64) (*LessonRequestView, error) {
	key := detailCacheKey(requestID)
	if s.cache != nil {
		var cached LessonRequestView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	detail, err := s.requests.FindDetailByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson request")
	}
	assignments, err := s.assignments.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	view := &LessonRequestView{LessonRequestDetail: *detail, Assignments: assignments}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache lesson request detail", zap.Error(err))
		}
	}
	return view, nil
}

// List returns lesson requests matching the filter.
func (s *LessonRequestService) List(ctx context.Context, filter models.LessonRequestFilter) ([]models.LessonRequestDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByTutor returns the requests the tutor is attached to.
func (s *LessonRequestService) ListByTutor(ctx context.Context, tutorID int64) ([]models.LessonRequestDetail, error) {
	if _, err := s.tutors.FindByID(ctx, tutorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	requests, err := s.requests.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson requests")
	}
	return requests, nil
}

// Delete removes a request and cascades to its assignments.
func (s *LessonRequestService) Delete(ctx context.Context, requestID int64) error {
	if err := s.requests.Delete(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson request")
	}
	s.invalidateDetail(ctx, requestID)
	return nil
}

func (s *LessonRequestService) invalidateDetail(ctx context.Context, requestID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, detailCacheKey(requestID)); err != nil {
		s.logger.Warn("failed to invalidate lesson request cache", zap.Error(err))
	}
}

func detailCacheKey(requestID int64) string {
	return fmt.Sprintf("lesson:detail:%d", requestID)
}

// validateLessonContent enforces the reason enumeration, the preferred-date
// format and uniqueness rules, and the note length bound shared by create
// and update.
func validateLessonContent(reasons, preferredDates []string, note string) error {
	for _, raw := range reasons {
		if !models.LessonReason(raw).Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown reason %q", raw))
		}
	}

	if len(preferredDates) < 1 || len(preferredDates) > models.MaxPreferredDates {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("between 1 and %d preferred dates are required", models.MaxPreferredDates))
	}
	seen := make(map[string]struct{}, len(preferredDates))
	for _, raw := range preferredDates {
		if _, dup := seen[raw]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate preferred date %q", raw))
		}
		seen[raw] = struct{}{}
		if _, err := time.Parse(models.PreferredDateLayout, raw); err != nil {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("preferred date %q must match the %q format", raw, models.PreferredDateLayout))
		}
	}

	if len([]rune(note)) > models.MaxNoteLength {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("additional info must be at most %d characters", models.MaxNoteLength))
	}
	return nil
}

func optionalNote(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
