package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lara-bot/internal/common/logger"
	"lara-bot/internal/platform/forte"
)

// Receipt is one point mutation confirmed by the backend.
type Receipt struct {
	ID      forte.ID
	UserID  string
	Points  int64
	ActorID string
	Reason  string
	At      time.Time
}

// Recorder keeps the audit trail of receipts. Recording never fails a command.
type Recorder interface {
	Record(ctx context.Context, r Receipt)
}

// StreamAdder is the go-redis subset used for the receipt stream.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type recorder struct {
	stream StreamAdder
	key    string
	maxLen int64
}

// NewRecorder logs every receipt and, when stream is non-nil, appends it to
// the Redis stream key.
func NewRecorder(stream StreamAdder, key string) Recorder {
	return &recorder{stream: stream, key: key, maxLen: 100000}
}

func (r *recorder) Record(ctx context.Context, rc Receipt) {
	if rc.At.IsZero() {
		rc.At = time.Now()
	}
	logger.Info().
		Str("receipt_id", rc.ID.String()).
		Str("user_id", rc.UserID).
		Int64("points", rc.Points).
		Str("actor_id", rc.ActorID).
		Str("reason", rc.Reason).
		Msg("receipt issued")

	if r.stream == nil {
		return
	}
	err := r.stream.XAdd(ctx, &redis.XAddArgs{
		Stream: r.key,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"receipt_id": rc.ID.String(),
			"user_id":    rc.UserID,
			"points":     strconv.FormatInt(rc.Points, 10),
			"actor_id":   rc.ActorID,
			"reason":     rc.Reason,
			"at":         rc.At.UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		logger.Warn().Err(err).Str("receipt_id", rc.ID.String()).Str("stream", r.key).Msg("failed to append receipt to stream")
	}
}
