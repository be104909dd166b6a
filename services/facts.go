package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"go.uber.org/zap"
)

// Fact types published after a successful check-in transaction.
const (
	FactAttendanceConfirmed = "attendance_confirmed"
	FactWeeklyGoalMet       = "weekly_goal_met"
	FactStreakExtended      = "streak_extended"
)

// Fact is a post-commit notification for external consumers (push delivery,
// achievements). Facts are emitted only after the attendance transaction
// committed, and a delivery failure never affects the committed state.
type Fact struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	GymID      uint      `json:"gym_id,omitempty"`
	Streak     int       `json:"streak,omitempty"`
	Tokens     int       `json:"tokens,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FactPublisher delivers post-commit facts. Implementations must be
// best-effort and non-blocking with respect to the request path.
type FactPublisher interface {
	Publish(ctx context.Context, f Fact)
}

// NewRedisFactPublisher publishes facts onto a Redis list the collaborator
// services drain. Errors are logged and dropped.
func NewRedisFactPublisher(client *redis.Client, key string, log *zap.SugaredLogger) FactPublisher {
	if key == "" {
		key = "peakfit:facts"
	}
	return &redisFactPublisher{client: client, key: key, log: log}
}

type redisFactPublisher struct {
	client *redis.Client
	key    string
	log    *zap.SugaredLogger
}

func (p *redisFactPublisher) Publish(ctx context.Context, f Fact) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.client.RPush(pushCtx, p.key, b).Err(); err != nil && p.log != nil {
		p.log.Warnf("fact publish failed type=%s user=%d: %v", f.Type, f.UserID, err)
	}
}

// NopFactPublisher discards all facts. Used in tests.
type NopFactPublisher struct{}

func (NopFactPublisher) Publish(context.Context, Fact) {}
