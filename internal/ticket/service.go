package ticket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/mchalloran/backend-pos/internal/catalog"
	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/events"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/obs"
	"github.com/mchalloran/backend-pos/internal/settlement"
)

// ErrNotFound indicates the ticket or transaction does not exist.
var ErrNotFound = errors.New("ticket not found")

// SettingsResolver is the slice of the settings service the ticket flow
// needs: taxability defaults and the effective tax rate.
type SettingsResolver interface {
	Category(ctx context.Context, id uuid.UUID) (catalog.SalesCategory, error)
	PaymentType(ctx context.Context, id uuid.UUID) (catalog.PaymentType, error)
	ResolveTaxRate(ctx context.Context, locationID uuid.UUID, on time.Time) (int64, error)
}

// LineDraft is one line item as entered at the register.
type LineDraft struct {
	CategoryID  uuid.UUID   `json:"category_id" validate:"required"`
	Description string      `json:"description" validate:"max=200"`
	UnitPrice   money.Cents `json:"unit_price" validate:"gte=0"`
	Quantity    int32       `json:"quantity" validate:"gte=1"`
	Taxable     *bool       `json:"taxable"`
	IsReturn    bool        `json:"is_return"`
}

// TenderDraft is one payment as entered at the register. Layaway tenders may
// carry a desired post-tax total instead of an amount.
type TenderDraft struct {
	PaymentTypeID uuid.UUID    `json:"payment_type_id" validate:"required"`
	Amount        money.Cents  `json:"amount" validate:"gte=0"`
	DesiredTotal  *money.Cents `json:"desired_total"`
	IsLayaway     bool         `json:"is_layaway"`
}

// Draft is a full register entry before it is persisted. The quote endpoint
// and the posting flow share it.
type Draft struct {
	TicketID   *uuid.UUID    `json:"ticket_id"`
	LocationID uuid.UUID     `json:"location_id" validate:"required"`
	SalesDayID *uuid.UUID    `json:"sales_day_id"`
	Note       string        `json:"note" validate:"max=500"`
	Lines      []LineDraft   `json:"lines" validate:"dive"`
	Tenders    []TenderDraft `json:"tenders" validate:"dive"`
}

// Quote is the evaluated draft: the ticket-level summary plus the per-line
// and per-tender figures the register shows live.
type Quote struct {
	TaxRateBps int64                   `json:"tax_rate_bps"`
	Summary    settlement.Summary      `json:"summary"`
	ChangeDue  money.Cents             `json:"change_due"`
	Lines      []settlement.ItemTotals `json:"lines"`
	Tenders    []money.Cents           `json:"tenders"`
}

// Detail is a ticket with its full transaction history.
type Detail struct {
	Ticket       Ticket        `json:"ticket"`
	Transactions []Transaction `json:"transactions"`
	Lines        []LineItem    `json:"lines"`
	Tenders      []Tender      `json:"tenders"`
}

// Service drives the ticket lifecycle: quoting drafts, posting transactions,
// voiding them, and keeping the cached summary consistent.
type Service struct {
	Store    Store
	Settings SettingsResolver
	Events   *events.Bus
	Log      zerolog.Logger

	Validate *validator.Validate
}

func (s *Service) validate(v any) error {
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate.Struct(v); err != nil {
		return common.NewAppError("VALIDATION", "invalid request", http.StatusUnprocessableEntity, err)
	}
	return nil
}

// evaluate resolves settings for the draft and runs the settlement engine.
// It returns the inputs alongside the outputs so posting can persist both.
func (s *Service) evaluate(ctx context.Context, d Draft) (Quote, []settlement.ItemInput, []settlement.TenderInput, error) {
	if err := s.validate(d); err != nil {
		return Quote{}, nil, nil, err
	}

	rate, err := s.Settings.ResolveTaxRate(ctx, d.LocationID, time.Time{})
	if err != nil {
		return Quote{}, nil, nil, err
	}

	itemInputs := make([]settlement.ItemInput, 0, len(d.Lines))
	for _, l := range d.Lines {
		cat, err := s.Settings.Category(ctx, l.CategoryID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Quote{}, nil, nil, common.NewAppError("VALIDATION", "unknown sales category", http.StatusUnprocessableEntity, err)
			}
			return Quote{}, nil, nil, err
		}
		itemInputs = append(itemInputs, settlement.ItemInput{
			CategoryTaxable: cat.TaxDefault,
			Taxable:         l.Taxable,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			IsReturn:        l.IsReturn,
		})
	}

	tenderInputs := make([]settlement.TenderInput, 0, len(d.Tenders))
	for _, t := range d.Tenders {
		if _, err := s.Settings.PaymentType(ctx, t.PaymentTypeID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Quote{}, nil, nil, common.NewAppError("VALIDATION", "unknown payment type", http.StatusUnprocessableEntity, err)
			}
			return Quote{}, nil, nil, err
		}
		tenderInputs = append(tenderInputs, settlement.TenderInput{
			Amount:       t.Amount,
			DesiredTotal: t.DesiredTotal,
			IsLayaway:    t.IsLayaway,
		})
	}

	started := time.Now()
	summary, lineTotals, amounts, err := settlement.Compute(itemInputs, tenderInputs, rate)
	if err != nil {
		return Quote{}, nil, nil, common.NewAppError("VALIDATION", err.Error(), http.StatusUnprocessableEntity, err)
	}
	if obs.SettlementLatency != nil {
		obs.SettlementLatency.Observe(float64(time.Since(started).Microseconds()) / 1000)
	}

	return Quote{
		TaxRateBps: rate,
		Summary:    summary,
		ChangeDue:  summary.ChangeDue(),
		Lines:      lineTotals,
		Tenders:    amounts,
	}, itemInputs, tenderInputs, nil
}

// QuoteDraft evaluates a draft without persisting anything.
func (s *Service) QuoteDraft(ctx context.Context, d Draft) (Quote, error) {
	q, _, _, err := s.evaluate(ctx, d)
	return q, err
}

// Post evaluates the draft and persists it as one transaction, creating the
// ticket when the draft carries no ticket id. The cached ticket totals are
// refreshed in the same database transaction.
func (s *Service) Post(ctx context.Context, d Draft) (Ticket, Transaction, Quote, error) {
	if len(d.Lines) == 0 && len(d.Tenders) == 0 {
		return Ticket{}, Transaction{}, Quote{}, common.NewAppError("VALIDATION", "a transaction needs at least one line or tender", http.StatusUnprocessableEntity, nil)
	}
	q, itemInputs, _, err := s.evaluate(ctx, d)
	if err != nil {
		s.countPost("error")
		return Ticket{}, Transaction{}, Quote{}, err
	}

	var before *Ticket
	params := PostParams{
		Transaction: Transaction{TaxRateBps: q.TaxRateBps},
	}
	if d.TicketID == nil {
		params.CreateTicket = true
		params.Ticket = Ticket{LocationID: d.LocationID, SalesDayID: d.SalesDayID, Note: d.Note}
	} else {
		existing, err := s.Store.GetTicket(ctx, *d.TicketID)
		if err != nil {
			s.countPost("error")
			if errors.Is(err, pgx.ErrNoRows) {
				return Ticket{}, Transaction{}, Quote{}, ErrNotFound
			}
			return Ticket{}, Transaction{}, Quote{}, err
		}
		before = &existing
		params.Ticket = existing
	}

	lines := make([]LineItem, 0, len(d.Lines))
	for i, l := range d.Lines {
		lines = append(lines, LineItem{
			ID:          uuid.New(),
			CategoryID:  l.CategoryID,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			IsReturn:    l.IsReturn,
			Taxable:     itemInputs[i].EffectiveTaxable(),
			Pretax:      q.Lines[i].Pretax,
			Tax:         q.Lines[i].Tax,
			Total:       q.Lines[i].Total,
		})
	}

	tenders := make([]Tender, 0, len(d.Tenders))
	var allocations []TenderAllocation
	for i, t := range d.Tenders {
		row := Tender{
			ID:            uuid.New(),
			PaymentTypeID: t.PaymentTypeID,
			Amount:        q.Tenders[i],
			IsLayaway:     t.IsLayaway,
			DesiredTotal:  t.DesiredTotal,
		}
		tenders = append(tenders, row)
		if t.IsLayaway && t.DesiredTotal != nil && obs.LayawayResolvedTotal != nil {
			obs.LayawayResolvedTotal.Inc()
		}
		for _, a := range settlement.AllocateTender(q.Lines, row.Amount, q.TaxRateBps) {
			allocations = append(allocations, TenderAllocation{
				ID:            uuid.New(),
				TenderID:      row.ID,
				LineItemID:    lines[a.ItemIndex].ID,
				AppliedPretax: a.AppliedPretax,
				AppliedTax:    a.AppliedTax,
				AppliedTotal:  a.AppliedTotal,
			})
		}
	}

	params.Lines = lines
	params.Tenders = tenders
	params.Allocations = allocations

	updated, txn, err := s.Store.PostTransaction(ctx, params)
	if err != nil {
		s.countPost("error")
		return Ticket{}, Transaction{}, Quote{}, err
	}
	s.countPost("ok")
	s.recordTransition(ctx, before, updated)
	s.emit(ctx, events.TopicTicketPosted, updated.ID, map[string]any{
		"transaction_id": txn.ID,
		"sales_day_id":   updated.SalesDayID,
		"total":          updated.Total,
		"balance_owed":   updated.BalanceOwed,
		"is_open":        updated.IsOpen,
	})
	s.Log.Info().
		Str("ticket_id", updated.ID.String()).
		Str("transaction_id", txn.ID.String()).
		Int64("total", int64(updated.Total)).
		Int64("balance_owed", int64(updated.BalanceOwed)).
		Bool("is_open", updated.IsOpen).
		Msg("transaction posted")
	return updated, txn, q, nil
}

// Void stamps a transaction voided and re-settles the ticket from the
// remaining snapshot. A closed ticket reopens if the void leaves a positive
// balance on a non-empty ticket.
func (s *Service) Void(ctx context.Context, ticketID, txnID uuid.UUID) (Ticket, Transaction, error) {
	before, err := s.Store.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, Transaction{}, ErrNotFound
		}
		return Ticket{}, Transaction{}, err
	}
	updated, txn, err := s.Store.VoidTransaction(ctx, ticketID, txnID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, Transaction{}, ErrNotFound
		}
		return Ticket{}, Transaction{}, err
	}
	if obs.TicketTransactionsTotal != nil {
		obs.TicketTransactionsTotal.WithLabelValues("void", "ok").Inc()
	}
	s.recordTransition(ctx, &before, updated)
	s.Log.Info().
		Str("ticket_id", ticketID.String()).
		Str("transaction_id", txnID.String()).
		Bool("is_open", updated.IsOpen).
		Msg("transaction voided")
	return updated, txn, nil
}

// Get returns the ticket with its full history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	t, err := s.Store.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, err
	}
	txns, err := s.Store.ListTransactions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	lines, err := s.Store.ListLineItems(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	tenders, err := s.Store.ListTenders(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Ticket: t, Transactions: txns, Lines: lines, Tenders: tenders}, nil
}

// List returns tickets matching the filter with the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Ticket, int, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.Store.ListTickets(ctx, f)
}

// Delete soft-deletes a ticket. Deleted tickets drop out of listings and
// reports but keep their rows for audit.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (Ticket, error) {
	t, err := s.Store.SoftDeleteTicket(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrNotFound
		}
		return Ticket{}, err
	}
	s.emit(ctx, events.TopicTicketDeleted, t.ID, map[string]any{
		"sales_day_id": t.SalesDayID,
		"total":        t.Total,
	})
	return t, nil
}

func (s *Service) countPost(result string) {
	if obs.TicketTransactionsTotal != nil {
		obs.TicketTransactionsTotal.WithLabelValues("post", result).Inc()
	}
}

// recordTransition emits state-change events and metrics when the open flag
// flipped. A brand new ticket counts as a transition into its initial state.
func (s *Service) recordTransition(ctx context.Context, before *Ticket, after Ticket) {
	if before != nil && before.IsOpen == after.IsOpen {
		return
	}
	to := "closed"
	topic := events.TopicTicketClosed
	if after.IsOpen {
		to = "open"
		topic = events.TopicTicketReopened
	}
	if obs.TicketStateTransitions != nil {
		obs.TicketStateTransitions.WithLabelValues(to).Inc()
	}
	// A brand new ticket has no prior state to announce.
	if before == nil {
		return
	}
	s.emit(ctx, topic, after.ID, map[string]any{
		"sales_day_id": after.SalesDayID,
		"balance_owed": after.BalanceOwed,
	})
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Log.Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}
