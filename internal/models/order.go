package models

import "time"

type Order struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FullName   string    `json:"fullname"`
	Phone      string    `json:"phone"`
	ServiceID  int64     `json:"service_id"`
	BarberID   int64     `json:"barber_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	BookedDate string    `json:"booked_date"`
	BookedTime string    `json:"booked_time"`
	CreatedAt  time.Time `json:"created_at"`

	// Filled by joined reads, not stored on the orders row.
	ServiceName string `json:"service_name,omitempty"`
	BarberName  string `json:"barber_name,omitempty"`
}

// StartsAt returns the reserved moment in loc, or zero time if unparsable.
func (o *Order) StartsAt(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, o.Date+" "+o.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
