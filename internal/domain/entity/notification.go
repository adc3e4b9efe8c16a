package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification - уведомление в ленте пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Event     string          `db:"event"`
	Payload   json.RawMessage `db:"payload"`
	IsRead    bool            `db:"is_read"`
	CreatedAt time.Time       `db:"created_at"`
}
