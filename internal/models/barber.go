package models

import "time"

type Barber struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Experience string    `json:"experience"`
	WorkDays   string    `json:"work_days"`
	WorkTime   string    `json:"work_time"`
	IsPaused   bool      `json:"is_paused"`
	PausedDate string    `json:"paused_date"` // empty means paused until resumed
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PausedOn reports whether the barber takes no bookings on date (YYYY-MM-DD).
func (b *Barber) PausedOn(date string) bool {
	if !b.IsPaused {
		return false
	}
	return b.PausedDate == "" || b.PausedDate == date
}
