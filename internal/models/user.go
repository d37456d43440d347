package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a chat user, keyed by their Telegram identifier. Created lazily on
// first interaction.
type User struct {
	ID         uuid.UUID `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Name       string    `db:"name"`
	CreatedAt  time.Time `db:"created_at"`
}
