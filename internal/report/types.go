package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/money"
)

// Totals is the ticket-level aggregate every report shares.
type Totals struct {
	Subtotal        money.Cents `json:"subtotal"`
	TaxTotal        money.Cents `json:"tax_total"`
	Total           money.Cents `json:"total"`
	TotalPaid       money.Cents `json:"total_paid"`
	BalanceOwed     money.Cents `json:"balance_owed"`
	TicketCount     int64       `json:"ticket_count"`
	OpenTicketCount int64       `json:"open_ticket_count"`
}

// CategoryBreakdown is revenue attributed to one sales category.
type CategoryBreakdown struct {
	CategoryID   uuid.UUID   `json:"category_id"`
	CategoryName string      `json:"category_name"`
	Pretax       money.Cents `json:"pretax"`
	Tax          money.Cents `json:"tax"`
	Total        money.Cents `json:"total"`
}

// PaymentBreakdown is collected money attributed to one payment type.
type PaymentBreakdown struct {
	PaymentTypeID   uuid.UUID   `json:"payment_type_id"`
	PaymentTypeName string      `json:"payment_type_name"`
	Amount          money.Cents `json:"amount"`
	TenderCount     int64       `json:"tender_count"`
}

// DayReport is the end-of-day picture for one sales day: settlement totals,
// category and payment breakdowns, and the drawer reconciliation figures.
type DayReport struct {
	SalesDayID   uuid.UUID           `json:"sales_day_id"`
	LocationID   uuid.UUID           `json:"location_id"`
	BusinessDate string              `json:"business_date"`
	Status       string              `json:"status"`
	Totals       Totals              `json:"totals"`
	Categories   []CategoryBreakdown `json:"categories"`
	Payments     []PaymentBreakdown  `json:"payments"`
	StartingCash money.Cents         `json:"starting_cash"`
	ExpectedCash money.Cents         `json:"expected_cash"`
	OverShort    money.Cents         `json:"over_short"`
	Deductions   money.Cents         `json:"deductions"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// RangeReport aggregates a date range for one location, or for all locations
// when LocationID is nil.
type RangeReport struct {
	LocationID  *uuid.UUID          `json:"location_id,omitempty"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Totals      Totals              `json:"totals"`
	Categories  []CategoryBreakdown `json:"categories"`
	Payments    []PaymentBreakdown  `json:"payments"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// MasterReport is the cross-location rollup: the grand total plus one range
// report per location.
type MasterReport struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	Totals      Totals        `json:"totals"`
	Locations   []RangeReport `json:"locations"`
	GeneratedAt time.Time     `json:"generated_at"`
}
