package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullname"`
	Phone        string    `json:"phone"`
	LanguageCode string    `json:"language_code"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasIdentity is true once both name and phone were collected.
func (u *User) HasIdentity() bool {
	return u != nil && u.FullName != "" && u.Phone != ""
}
