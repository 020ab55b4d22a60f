package domain

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventProfileBuilt    = "profile.built"
	EventProfileExported = "profile.exported"
)

// Event 发布到消息队列的领域事件
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Username   string    `json:"username"`
	Format     string    `json:"format,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(eventType, username string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Username:   username,
		OccurredAt: at.UTC(),
	}
}
