package ticket

import (
	"time"

	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/settlement"
)

// Ticket is the customer-facing unit of sale. The monetary columns are a
// cached copy of the settlement summary, refreshed in the same database
// transaction as every write that can change it.
type Ticket struct {
	ID uuid.UUID `json:"id"`
	// TicketNumber is the human-facing sequential number printed on receipts.
	// The database assigns it from a sequence starting at 1000.
	TicketNumber int64       `json:"ticket_number"`
	LocationID   uuid.UUID   `json:"location_id"`
	SalesDayID   *uuid.UUID  `json:"sales_day_id,omitempty"`
	Note         string      `json:"note,omitempty"`
	Subtotal     money.Cents `json:"subtotal"`
	TaxTotal     money.Cents `json:"tax_total"`
	Total        money.Cents `json:"total"`
	TotalPaid    money.Cents `json:"total_paid"`
	BalanceOwed  money.Cents `json:"balance_owed"`
	IsOpen       bool        `json:"is_open"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// Summary converts the cached columns back into a settlement summary.
func (t Ticket) Summary() settlement.Summary {
	return settlement.Summary{
		Subtotal:    t.Subtotal,
		TaxTotal:    t.TaxTotal,
		Total:       t.Total,
		TotalPaid:   t.TotalPaid,
		BalanceOwed: t.BalanceOwed,
		IsOpen:      t.IsOpen,
	}
}

// Transaction groups the line items and tenders entered in one register
// interaction. Voiding a transaction removes its rows from the settlement
// snapshot without deleting them.
type Transaction struct {
	ID         uuid.UUID  `json:"id"`
	TicketID   uuid.UUID  `json:"ticket_id"`
	TaxRateBps int64      `json:"tax_rate_bps"`
	CreatedAt  time.Time  `json:"created_at"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
}

// LineItem is one sale or return line with its frozen derived figures. The
// taxability it was posted with never changes, even if the category default
// is edited later.
type LineItem struct {
	ID            uuid.UUID   `json:"id"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	CategoryID    uuid.UUID   `json:"category_id"`
	Description   string      `json:"description,omitempty"`
	UnitPrice     money.Cents `json:"unit_price"`
	Quantity      int32       `json:"quantity"`
	IsReturn      bool        `json:"is_return"`
	Taxable       bool        `json:"taxable"`
	Pretax        money.Cents `json:"pretax"`
	Tax           money.Cents `json:"tax"`
	Total         money.Cents `json:"total"`
}

// Tender is one payment recorded against a ticket. For layaway tenders the
// stored amount is the back-computed deposit, and DesiredTotal preserves what
// the customer asked for.
type Tender struct {
	ID            uuid.UUID    `json:"id"`
	TransactionID uuid.UUID    `json:"transaction_id"`
	PaymentTypeID uuid.UUID    `json:"payment_type_id"`
	Amount        money.Cents  `json:"amount"`
	IsLayaway     bool         `json:"is_layaway"`
	DesiredTotal  *money.Cents `json:"desired_total,omitempty"`
}

// TenderAllocation records the portion of a tender applied to one line item.
type TenderAllocation struct {
	ID            uuid.UUID   `json:"id"`
	TenderID      uuid.UUID   `json:"tender_id"`
	LineItemID    uuid.UUID   `json:"line_item_id"`
	AppliedPretax money.Cents `json:"applied_pretax"`
	AppliedTax    money.Cents `json:"applied_tax"`
	AppliedTotal  money.Cents `json:"applied_total"`
}

// Summarize recomputes the settlement summary from a full snapshot of
// non-voided rows. Stored per-line figures are trusted as posted; nothing is
// re-derived from unit prices, so historical tax rates stay frozen.
func Summarize(lines []LineItem, tenders []Tender) settlement.Summary {
	itemTotals := make([]settlement.ItemTotals, 0, len(lines))
	for _, l := range lines {
		itemTotals = append(itemTotals, settlement.ItemTotals{
			Pretax: l.Pretax,
			Tax:    l.Tax,
			Total:  l.Total,
			Taxed:  l.Taxable,
		})
	}
	amounts := make([]money.Cents, 0, len(tenders))
	for _, t := range tenders {
		amounts = append(amounts, t.Amount)
	}
	return settlement.Settle(itemTotals, amounts)
}
