package models

import (
	"time"

	"github.com/lib/pq"
)

// Tutor represents a tutor who can accept lesson requests.
type Tutor struct {
	ID           int64          `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Expertise    pq.StringArray `db:"expertise" json:"expertise"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// TutorFilter encapsulates allowed search parameters for listing tutors.
type TutorFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
