package catalog

import (
	"time"

	"github.com/google/uuid"
)

// SalesCategory groups line items for taxability defaults and reporting.
type SalesCategory struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TaxDefault bool      `json:"tax_default"`
	Active     bool      `json:"active"`
}

// PaymentType labels tenders. Taxable is a descriptive tag kept for
// cash-discount style methods; it never participates in tender math.
// CountsAsCash marks types whose tenders land in the physical drawer and
// therefore feed the expected-cash figure at end of day.
type PaymentType struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Taxable      bool      `json:"taxable"`
	CountsAsCash bool      `json:"counts_as_cash"`
	Active       bool      `json:"active"`
}

// Location is a store front tickets post against.
type Location struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// TaxRate is an effective-dated tax rate for a location, in basis points.
type TaxRate struct {
	ID            uuid.UUID  `json:"id"`
	LocationID    uuid.UUID  `json:"location_id"`
	RateBps       int64      `json:"rate_bps"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}
