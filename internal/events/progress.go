package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProgressStage names a step in the orchestration lifecycle.
type ProgressStage string

const (
	StageStarted          ProgressStage = "started"
	StageFetchingContext  ProgressStage = "fetching_context"
	StageAnalyzing        ProgressStage = "analyzing"
	StageAnalysisComplete ProgressStage = "analysis_complete"
	StageCompleted        ProgressStage = "completed"
)

// ProgressObserver receives orchestration lifecycle events for live
// status surfaces. Implementations must never fail the caller.
type ProgressObserver interface {
	Emit(ctx context.Context, ticketCode string, stage ProgressStage, message string)
}

// ProgressEvent is the wire shape published per stage.
type ProgressEvent struct {
	TicketCode string        `json:"ticket_id"`
	Stage      ProgressStage `json:"event"`
	Message    string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
}

// RedisProgressObserver publishes progress events to a Redis channel per
// ticket. Publish failures are logged, never surfaced.
type RedisProgressObserver struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisProgressObserver creates the observer.
func NewRedisProgressObserver(client *redis.Client, logger *zap.Logger) *RedisProgressObserver {
	return &RedisProgressObserver{client: client, logger: logger}
}

// Emit publishes one progress event.
func (o *RedisProgressObserver) Emit(ctx context.Context, ticketCode string, stage ProgressStage, message string) {
	event := ProgressEvent{
		TicketCode: ticketCode,
		Stage:      stage,
		Message:    message,
		Timestamp:  time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("marshal progress event", zap.Error(err))
		return
	}
	if o.client == nil {
		o.logger.Debug("progress event (no redis)", zap.String("ticket", ticketCode), zap.String("stage", string(stage)))
		return
	}
	if err := o.client.Publish(ctx, "helpdesk:ticket_events:"+ticketCode, payload).Err(); err != nil {
		o.logger.Warn("publish progress event",
			zap.String("ticket", ticketCode),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
	}
}
