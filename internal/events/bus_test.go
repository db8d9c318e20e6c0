package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/events"
)

type stubStore struct {
	last events.Event
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	s.last = events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	return s.last, nil
}

type captureScheduler struct {
	events []events.Event
}

func (c *captureScheduler) Schedule(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := &events.Bus{Store: store, Scheduler: scheduler, Notifiers: []events.Notifier{notifier}}

	ticketID := uuid.New()
	ev, err := bus.Emit(context.Background(), events.TopicTicketClosed, ticketID, map[string]any{"balance_owed": 0})
	require.NoError(t, err)
	require.Equal(t, events.TopicTicketClosed, ev.Topic)
	require.Equal(t, ticketID, ev.AggregateID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.EqualValues(t, 0, payload["balance_owed"])

	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
}

func TestEmitRejectsMissingTopicAndAggregate(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), " ", uuid.New(), nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicTicketPosted, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicTicketPosted, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}
