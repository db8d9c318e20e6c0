package salesday

import (
	"time"

	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/money"
)

// Status is the drawer lifecycle state. Open days accept tickets, submitted
// days have a counted drawer awaiting review, locked days are immutable.
type Status string

const (
	StatusOpen      Status = "open"
	StatusSubmitted Status = "submitted"
	StatusLocked    Status = "locked"
)

// SalesDay is one business day of register activity at a location.
// ExpectedCash and OverShort are computed at submit time from the starting
// float plus every cash tender posted against the day's tickets.
type SalesDay struct {
	ID           uuid.UUID    `json:"id"`
	LocationID   uuid.UUID    `json:"location_id"`
	BusinessDate time.Time    `json:"business_date"`
	Status       Status       `json:"status"`
	StartingCash money.Cents  `json:"starting_cash"`
	ExpectedCash money.Cents  `json:"expected_cash"`
	CountedCash  *money.Cents `json:"counted_cash,omitempty"`
	OverShort    money.Cents  `json:"over_short"`
	Note         string       `json:"note,omitempty"`
	OpenedAt     time.Time    `json:"opened_at"`
	SubmittedAt  *time.Time   `json:"submitted_at,omitempty"`
	LockedAt     *time.Time   `json:"locked_at,omitempty"`
}
