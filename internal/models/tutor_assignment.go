package models

import "time"

// AssignmentStatus is the lifecycle status of a tutor assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// TutorAssignment links a tutor to a lesson request together with the
// preferred date the tutor committed to. A tutor appears at most once
// per request.
type TutorAssignment struct {
	ID              int64            `db:"id" json:"id"`
	LessonRequestID int64            `db:"lesson_request_id" json:"lesson_request_id"`
	TutorID         int64            `db:"tutor_id" json:"tutor_id"`
	ChosenDate      string           `db:"chosen_date" json:"chosen_date"`
	Status          AssignmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// TutorAssignmentDetail is an assignment joined with the tutor's name.
type TutorAssignmentDetail struct {
	TutorAssignment
	TutorName string `db:"tutor_name" json:"tutor_name"`
}
