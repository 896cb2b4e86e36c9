package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonRequestStatus is the lifecycle status of a lesson request.
type LessonRequestStatus string

const (
	LessonStatusPending   LessonRequestStatus = "pending"
	LessonStatusAccepted  LessonRequestStatus = "accepted"
	LessonStatusConfirmed LessonRequestStatus = "confirmed"
	LessonStatusFinalized LessonRequestStatus = "finalized"
	LessonStatusCancelled LessonRequestStatus = "cancelled"
)

// lessonStatusTransitions lists the statuses each status may move to.
// Finalized and cancelled are terminal. Moving back to pending is only
// legal when the last assignment is withdrawn.
var lessonStatusTransitions = map[LessonRequestStatus][]LessonRequestStatus{
	LessonStatusPending:   {LessonStatusAccepted, LessonStatusCancelled},
	LessonStatusAccepted:  {LessonStatusPending, LessonStatusConfirmed, LessonStatusCancelled},
	LessonStatusConfirmed: {LessonStatusFinalized, LessonStatusCancelled},
	LessonStatusFinalized: {},
	LessonStatusCancelled: {},
}

// Valid reports whether the value is a known status.
func (s LessonRequestStatus) Valid() bool {
	_, ok := lessonStatusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions exist from this status.
func (s LessonRequestStatus) IsTerminal() bool {
	targets, ok := lessonStatusTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s LessonRequestStatus) CanTransitionTo(target LessonRequestStatus) bool {
	for _, allowed := range lessonStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// LessonReason classifies why the student is asking for a lesson.
type LessonReason string

const (
	ReasonReinforcement LessonReason = "reforço"
	ReasonExamOrPaper   LessonReason = "prova ou trabalho"
	ReasonExercises     LessonReason = "correção de exercício"
	ReasonOther         LessonReason = "outro"
)

// Valid reports whether the value is a known reason.
func (r LessonReason) Valid() bool {
	switch r {
	case ReasonReinforcement, ReasonExamOrPaper, ReasonExercises, ReasonOther:
		return true
	}
	return false
}

// PreferredDateLayout is the display format preferred dates are stored in.
const PreferredDateLayout = "02/01/2006 às 15:04"

const (
	// MaxPreferredDates bounds how many date options a student may offer.
	MaxPreferredDates = 3
	// MaxNoteLength bounds the free-form additional info field.
	MaxNoteLength = 200
)

// LessonRequest is a student's ask for a lesson in a subject.
type LessonRequest struct {
	ID             int64               `db:"id" json:"id"`
	Reasons        pq.StringArray      `db:"reason" json:"reason"`
	PreferredDates pq.StringArray      `db:"preferred_dates" json:"preferred_dates"`
	Status         LessonRequestStatus `db:"status" json:"status"`
	Note           *string             `db:"additional_info" json:"additional_info,omitempty"`
	SubjectID      int64               `db:"subject_id" json:"subject_id"`
	StudentID      int64               `db:"student_id" json:"student_id"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// HasPreferredDate reports whether the exact date string is one of the
// student's offered options.
func (lr *LessonRequest) HasPreferredDate(date string) bool {
	for _, d := range lr.PreferredDates {
		if d == date {
			return true
		}
	}
	return false
}

// LessonRequestDetail is a lesson request joined with display names.
type LessonRequestDetail struct {
	LessonRequest
	SubjectName string `db:"subject_name" json:"subject_name"`
	StudentName string `db:"student_name" json:"student_name"`
}

// LessonRequestFilter captures supported filters for listing requests.
type LessonRequestFilter struct {
	StudentID int64
	Status    LessonRequestStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
