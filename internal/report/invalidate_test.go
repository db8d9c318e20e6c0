package report_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/events"
	"github.com/mchalloran/backend-pos/internal/report"
)

func TestCacheInvalidatorDropsDayReport(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dayID := uuid.New()
	key := fmt.Sprintf("report:day:%s", dayID)
	require.NoError(t, client.Set(context.Background(), key, `{"stale":true}`, 0).Err())

	inv := &report.CacheInvalidator{R: client, Log: zerolog.Nop()}
	payload, _ := json.Marshal(map[string]any{"sales_day_id": dayID})
	err := inv.Notify(context.Background(), events.Event{
		Topic:       events.TopicTicketPosted,
		AggregateID: uuid.New(),
		Payload:     payload,
	})
	require.NoError(t, err)
	require.False(t, srv.Exists(key))
}

func TestCacheInvalidatorIgnoresOtherTopics(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dayID := uuid.New()
	key := fmt.Sprintf("report:day:%s", dayID)
	require.NoError(t, client.Set(context.Background(), key, `{"fresh":true}`, 0).Err())

	inv := &report.CacheInvalidator{R: client, Log: zerolog.Nop()}
	payload, _ := json.Marshal(map[string]any{"sales_day_id": dayID})
	err := inv.Notify(context.Background(), events.Event{
		Topic:       events.TopicSalesDaySubmitted,
		AggregateID: dayID,
		Payload:     payload,
	})
	require.NoError(t, err)
	require.True(t, srv.Exists(key))
}
