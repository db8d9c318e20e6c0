package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events to Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore returns an EventStore backed by Postgres.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	var ev Event
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO domain_events (id, topic, aggregate_id, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, topic, aggregate_id, payload, occurred_at`,
		uuid.New(), topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
