package reports

import "time"

// Summary is one entry of the all-reports listing.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Period      string    `json:"period"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TotalAmount float64   `json:"total_amount"`
	Version     int64     `json:"version"`
	Status      string    `json:"status"`
	LockedBy    *string   `json:"locked_by,omitempty"`
}

// RevisionState is the authoritative version-control state a revision
// operation returns. Clients adopt it verbatim.
type RevisionState struct {
	Version  int64      `json:"version"`
	Status   string     `json:"status"`
	LockedBy *string    `json:"locked_by"`
	LockedAt *time.Time `json:"locked_at"`
}

// ConflictError is a precondition rejection (lock held elsewhere,
// wrong status). It is recoverable; the caller's state is untouched.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}
