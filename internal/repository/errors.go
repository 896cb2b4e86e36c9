package repository

import "errors"

// Sentinel errors surfaced by the transactional write paths so services can
// classify failures without parsing driver errors. Plain read misses keep
// using sql.ErrNoRows.
var (
	// ErrStatusConflict signals that the lesson request row, re-read under
	// lock, was no longer in a status that permits the attempted write.
	ErrStatusConflict = errors.New("lesson request status conflict")

	// ErrDuplicateAssignment signals the (lesson_request_id, tutor_id)
	// uniqueness constraint rejected an insert.
	ErrDuplicateAssignment = errors.New("tutor already assigned to lesson request")

	// ErrChosenDateConflict signals the chosen date was not among the
	// preferred dates of the locked lesson request row.
	ErrChosenDateConflict = errors.New("chosen date not among preferred dates")
)
