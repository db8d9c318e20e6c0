package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mchalloran/backend-pos/internal/events"
	"github.com/mchalloran/backend-pos/internal/obs"
)

// TaskRollup is the asynq task type for post-submit report rollups.
const TaskRollup = "report:rollup"

type rollupPayload struct {
	SalesDayID uuid.UUID `json:"sales_day_id"`
}

// Enqueuer schedules rollup tasks off the event bus. It implements
// events.Scheduler and ignores every topic except the drawer submit.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Log    zerolog.Logger
}

// Schedule enqueues a rollup for a submitted sales day.
func (e *Enqueuer) Schedule(ctx context.Context, event events.Event) error {
	if e == nil || e.Client == nil {
		return nil
	}
	if event.Topic != events.TopicSalesDaySubmitted {
		return nil
	}
	payload, err := json.Marshal(rollupPayload{SalesDayID: event.AggregateID})
	if err != nil {
		return fmt.Errorf("marshal rollup payload: %w", err)
	}
	task := asynq.NewTask(TaskRollup, payload)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		// One rollup per day per submit; a resubmit after reopen enqueues anew.
		asynq.TaskID(fmt.Sprintf("rollup:%s:%s", event.AggregateID, event.ID)),
	}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue rollup: %w", err)
	}
	e.Log.Info().
		Str("task_id", info.ID).
		Str("sales_day_id", event.AggregateID.String()).
		Msg("rollup enqueued")
	return nil
}

// RollupHandler processes rollup tasks: it rebuilds the day report, warms the
// cache, and pushes the result to the configured export sink.
type RollupHandler struct {
	Reports  *Service
	Exporter *Exporter
	Bus      *events.Bus
	Log      zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h *RollupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload rollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.countTask("invalid")
		// A malformed payload never becomes valid; skip the retries.
		return fmt.Errorf("unmarshal rollup payload: %v: %w", err, asynq.SkipRetry)
	}
	out, err := h.Reports.DayEOD(ctx, payload.SalesDayID, true)
	if err != nil {
		h.countTask("error")
		return fmt.Errorf("build day report %s: %w", payload.SalesDayID, err)
	}
	if h.Exporter != nil {
		if err := h.Exporter.Deliver(ctx, out); err != nil {
			h.countTask("export_error")
			return fmt.Errorf("export day report %s: %w", payload.SalesDayID, err)
		}
	}
	h.countTask("ok")
	if h.Bus != nil {
		if _, err := h.Bus.Emit(ctx, events.TopicRollupCompleted, payload.SalesDayID, map[string]any{
			"total":      out.Totals.Total,
			"over_short": out.OverShort,
		}); err != nil {
			h.Log.Warn().Err(err).Msg("emit rollup completed")
		}
	}
	h.Log.Info().
		Str("sales_day_id", payload.SalesDayID.String()).
		Int64("total", int64(out.Totals.Total)).
		Msg("rollup completed")
	return nil
}

func (h *RollupHandler) countTask(result string) {
	if obs.RollupTasksTotal != nil {
		obs.RollupTasksTotal.WithLabelValues(result).Inc()
	}
}
