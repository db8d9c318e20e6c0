package report

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mchalloran/backend-pos/internal/events"
)

// CacheInvalidator drops the cached day report when ticket activity touches a
// sales day, so registers polling the live report do not wait out the TTL.
type CacheInvalidator struct {
	R   *redis.Client
	Log zerolog.Logger
}

func (c *CacheInvalidator) Notify(ctx context.Context, ev events.Event) error {
	if c == nil || c.R == nil {
		return nil
	}
	if !strings.HasPrefix(ev.Topic, "ticket.") {
		return nil
	}
	var payload struct {
		SalesDayID *uuid.UUID `json:"sales_day_id"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.SalesDayID == nil {
		return nil
	}
	key := cacheKey("day", *payload.SalesDayID)
	if err := c.R.Del(ctx, key).Err(); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("invalidate day report cache")
		return err
	}
	return nil
}
