package ticket_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/catalog"
	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/ticket"
)

type stubSettings struct {
	categories   map[uuid.UUID]catalog.SalesCategory
	paymentTypes map[uuid.UUID]catalog.PaymentType
	rateBps      int64
}

func (s *stubSettings) Category(_ context.Context, id uuid.UUID) (catalog.SalesCategory, error) {
	c, ok := s.categories[id]
	if !ok {
		return catalog.SalesCategory{}, catalog.ErrNotFound
	}
	return c, nil
}

func (s *stubSettings) PaymentType(_ context.Context, id uuid.UUID) (catalog.PaymentType, error) {
	p, ok := s.paymentTypes[id]
	if !ok {
		return catalog.PaymentType{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubSettings) ResolveTaxRate(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return s.rateBps, nil
}

type stubTicketStore struct {
	ticket.Store

	tickets    map[uuid.UUID]ticket.Ticket
	lastPost   ticket.PostParams
	posts      int
	voidResult ticket.Ticket
}

func (s *stubTicketStore) GetTicket(_ context.Context, id uuid.UUID) (ticket.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	return t, nil
}

func (s *stubTicketStore) PostTransaction(_ context.Context, p ticket.PostParams) (ticket.Ticket, ticket.Transaction, error) {
	s.lastPost = p
	s.posts++
	t := p.Ticket
	if p.CreateTicket {
		t.ID = uuid.New()
	}
	summary := ticket.Summarize(p.Lines, p.Tenders)
	t.Subtotal = summary.Subtotal
	t.TaxTotal = summary.TaxTotal
	t.Total = summary.Total
	t.TotalPaid = summary.TotalPaid
	t.BalanceOwed = summary.BalanceOwed
	t.IsOpen = summary.IsOpen
	txn := p.Transaction
	txn.ID = uuid.New()
	txn.TicketID = t.ID
	return t, txn, nil
}

func (s *stubTicketStore) VoidTransaction(_ context.Context, _, txnID uuid.UUID) (ticket.Ticket, ticket.Transaction, error) {
	now := time.Now()
	return s.voidResult, ticket.Transaction{ID: txnID, VoidedAt: &now}, nil
}

func newService(store *stubTicketStore, settings *stubSettings) *ticket.Service {
	return &ticket.Service{
		Store:    store,
		Settings: settings,
		Log:      zerolog.Nop(),
		Validate: validator.New(),
	}
}

func fixtures() (*stubSettings, uuid.UUID, uuid.UUID, uuid.UUID) {
	taxableCat := uuid.New()
	exemptCat := uuid.New()
	cash := uuid.New()
	settings := &stubSettings{
		categories: map[uuid.UUID]catalog.SalesCategory{
			taxableCat: {ID: taxableCat, Name: "Grooming", TaxDefault: true, Active: true},
			exemptCat:  {ID: exemptCat, Name: "Gift Cards", TaxDefault: false, Active: true},
		},
		paymentTypes: map[uuid.UUID]catalog.PaymentType{
			cash: {ID: cash, Name: "Cash", Active: true},
		},
		rateBps: 825,
	}
	return settings, taxableCat, exemptCat, cash
}

func TestPostCreatesTicketAndSettles(t *testing.T) {
	settings, taxableCat, _, cash := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	posted, txn, q, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines: []ticket.LineDraft{
			{CategoryID: taxableCat, UnitPrice: 10000, Quantity: 1},
		},
		Tenders: []ticket.TenderDraft{
			{PaymentTypeID: cash, Amount: 10825},
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, posted.ID)
	require.EqualValues(t, 825, txn.TaxRateBps)

	require.EqualValues(t, 10000, posted.Subtotal)
	require.EqualValues(t, 825, posted.TaxTotal)
	require.EqualValues(t, 10825, posted.Total)
	require.EqualValues(t, 10825, posted.TotalPaid)
	require.EqualValues(t, 0, posted.BalanceOwed)
	require.False(t, posted.IsOpen)
	require.EqualValues(t, 0, q.ChangeDue)

	require.True(t, store.lastPost.CreateTicket)
	require.Len(t, store.lastPost.Lines, 1)
	line := store.lastPost.Lines[0]
	require.True(t, line.Taxable)
	require.EqualValues(t, 10000, line.Pretax)
	require.EqualValues(t, 825, line.Tax)
	require.EqualValues(t, 10825, line.Total)

	// The single tender covers the single line in full.
	require.Len(t, store.lastPost.Allocations, 1)
	alloc := store.lastPost.Allocations[0]
	require.Equal(t, line.ID, alloc.LineItemID)
	require.EqualValues(t, 10825, alloc.AppliedTotal)
	require.EqualValues(t, alloc.AppliedTotal, alloc.AppliedPretax+alloc.AppliedTax)
}

func TestPostPartialPaymentLeavesTicketOpen(t *testing.T) {
	settings, taxableCat, _, cash := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	posted, _, _, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines:      []ticket.LineDraft{{CategoryID: taxableCat, UnitPrice: 10000, Quantity: 1}},
		Tenders:    []ticket.TenderDraft{{PaymentTypeID: cash, Amount: 5000}},
	})
	require.NoError(t, err)
	require.True(t, posted.IsOpen)
	require.EqualValues(t, 5825, posted.BalanceOwed)
}

func TestPostLayawayBackComputesDeposit(t *testing.T) {
	settings, _, _, cash := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	desired := money.Cents(5000)
	_, _, q, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Tenders: []ticket.TenderDraft{
			{PaymentTypeID: cash, DesiredTotal: &desired, IsLayaway: true},
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, 4619, q.Tenders[0])
	require.Len(t, store.lastPost.Tenders, 1)
	require.EqualValues(t, 4619, store.lastPost.Tenders[0].Amount)
	require.Equal(t, &desired, store.lastPost.Tenders[0].DesiredTotal)
}

func TestPostReturnMirrorsSale(t *testing.T) {
	settings, taxableCat, _, _ := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	posted, _, _, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines: []ticket.LineDraft{
			{CategoryID: taxableCat, UnitPrice: 10000, Quantity: 1, IsReturn: true},
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, -10000, posted.Subtotal)
	require.EqualValues(t, -825, posted.TaxTotal)
	require.EqualValues(t, -10825, posted.Total)
	require.False(t, posted.IsOpen)
}

func TestPostOverrideBeatsCategoryDefault(t *testing.T) {
	settings, taxableCat, exemptCat, _ := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	exempt := false
	taxed := true
	posted, _, _, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines: []ticket.LineDraft{
			{CategoryID: taxableCat, UnitPrice: 1000, Quantity: 1, Taxable: &exempt},
			{CategoryID: exemptCat, UnitPrice: 1000, Quantity: 1, Taxable: &taxed},
		},
	})
	require.NoError(t, err)
	require.False(t, store.lastPost.Lines[0].Taxable)
	require.True(t, store.lastPost.Lines[1].Taxable)
	require.EqualValues(t, 83, posted.TaxTotal)
}

func TestPostUnknownCategoryRejected(t *testing.T) {
	settings, _, _, cash := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	_, _, _, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines:      []ticket.LineDraft{{CategoryID: uuid.New(), UnitPrice: 100, Quantity: 1}},
		Tenders:    []ticket.TenderDraft{{PaymentTypeID: cash, Amount: 100}},
	})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
	require.Zero(t, store.posts)
}

func TestPostInvalidQuantityRejected(t *testing.T) {
	settings, taxableCat, _, _ := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	_, _, _, err := svc.Post(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines:      []ticket.LineDraft{{CategoryID: taxableCat, UnitPrice: 100, Quantity: 0}},
	})
	require.Error(t, err)
	require.Zero(t, store.posts)
}

func TestPostEmptyDraftRejected(t *testing.T) {
	settings, _, _, _ := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	_, _, _, err := svc.Post(context.Background(), ticket.Draft{LocationID: uuid.New()})
	require.Error(t, err)
	require.Zero(t, store.posts)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	settings, taxableCat, _, cash := fixtures()
	store := &stubTicketStore{}
	svc := newService(store, settings)

	q, err := svc.QuoteDraft(context.Background(), ticket.Draft{
		LocationID: uuid.New(),
		Lines:      []ticket.LineDraft{{CategoryID: taxableCat, UnitPrice: 10000, Quantity: 1}},
		Tenders:    []ticket.TenderDraft{{PaymentTypeID: cash, Amount: 11000}},
	})
	require.NoError(t, err)
	require.EqualValues(t, -175, q.Summary.BalanceOwed)
	require.EqualValues(t, 175, q.ChangeDue)
	require.False(t, q.Summary.IsOpen)
	require.Zero(t, store.posts)
}

func TestVoidReturnsRefreshedTicket(t *testing.T) {
	settings, _, _, _ := fixtures()
	ticketID := uuid.New()
	store := &stubTicketStore{
		tickets: map[uuid.UUID]ticket.Ticket{
			ticketID: {ID: ticketID, IsOpen: false, Total: 10825, TotalPaid: 10825},
		},
		voidResult: ticket.Ticket{ID: ticketID, IsOpen: true, Total: 10825, BalanceOwed: 10825},
	}
	svc := newService(store, settings)

	updated, txn, err := svc.Void(context.Background(), ticketID, uuid.New())
	require.NoError(t, err)
	require.True(t, updated.IsOpen)
	require.NotNil(t, txn.VoidedAt)
}

func TestSummarizeEmptySnapshotNeverOpen(t *testing.T) {
	summary := ticket.Summarize(nil, []ticket.Tender{{Amount: 5000}})
	require.EqualValues(t, 0, summary.Total)
	require.EqualValues(t, 5000, summary.TotalPaid)
	require.EqualValues(t, -5000, summary.BalanceOwed)
	require.False(t, summary.IsOpen)
}
