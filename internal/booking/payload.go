package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Callback data prefixes of the booking flow.
const (
	PrefixService = "service_"
	PrefixBarber  = "barber_"
	PrefixDate    = "date_"
	PrefixTime    = "time_"
	PrefixConfirm = "confirm_"

	CallbackBack   = "back"
	CallbackCancel = "cancel_booking"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var ErrMalformedPayload = errors.New("malformed callback payload")

// Confirmation is the decoded confirm_{service}_{barber}_{date}_{time} payload.
type Confirmation struct {
	ServiceID int64
	BarberID  int64
	Date      string
	Time      string
}

func (c Confirmation) Encode() string {
	return fmt.Sprintf("%s%d_%d_%s_%s", PrefixConfirm, c.ServiceID, c.BarberID, c.Date, c.Time)
}

// ParseConfirmation splits data on "_" into at most five fields and
// validates every one of them.
func ParseConfirmation(data string) (Confirmation, error) {
	parts := strings.SplitN(data, "_", 5)
	if len(parts) != 5 || parts[0]+"_" != PrefixConfirm {
		return Confirmation{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}

	serviceID, err := parseID(parts[1])
	if err != nil {
		return Confirmation{}, err
	}
	barberID, err := parseID(parts[2])
	if err != nil {
		return Confirmation{}, err
	}
	if _, err := time.Parse(dateLayout, parts[3]); err != nil {
		return Confirmation{}, fmt.Errorf("%w: date %q", ErrMalformedPayload, parts[3])
	}
	if _, err := time.Parse(timeLayout, parts[4]); err != nil {
		return Confirmation{}, fmt.Errorf("%w: time %q", ErrMalformedPayload, parts[4])
	}

	return Confirmation{ServiceID: serviceID, BarberID: barberID, Date: parts[3], Time: parts[4]}, nil
}

func EncodeService(id int64) string { return PrefixService + strconv.FormatInt(id, 10) }
func EncodeBarber(id int64) string  { return PrefixBarber + strconv.FormatInt(id, 10) }
func EncodeDate(date string) string { return PrefixDate + date }
func EncodeTime(t string) string    { return PrefixTime + t }

// ParseID decodes the numeric suffix of a service_/barber_ payload.
func ParseID(data, prefix string) (int64, error) {
	if !strings.HasPrefix(data, prefix) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}
	return parseID(strings.TrimPrefix(data, prefix))
}

// ParseDate decodes a date_YYYY-MM-DD payload.
func ParseDate(data string) (string, error) {
	value := strings.TrimPrefix(data, PrefixDate)
	if value == data {
		return "", fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", fmt.Errorf("%w: date %q", ErrMalformedPayload, value)
	}
	return value, nil
}

// ParseTime decodes a time_HH:MM payload.
func ParseTime(data string) (string, error) {
	value := strings.TrimPrefix(data, PrefixTime)
	if value == data {
		return "", fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}
	if _, err := time.Parse(timeLayout, value); err != nil {
		return "", fmt.Errorf("%w: time %q", ErrMalformedPayload, value)
	}
	return value, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrMalformedPayload, raw)
	}
	return id, nil
}
