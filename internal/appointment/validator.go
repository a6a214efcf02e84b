// Package appointment formats and validates the date and time a customer
// types for an optional service booking.
package appointment

import (
	"strconv"
	"strings"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
)

const (
	DateLayout = "01-02-2006"

	// maxYearsAhead bounds how far in the future a booking may be made.
	maxYearsAhead = 2
)

// FormatDate strips non-digits and renders what is left as MM-DD-YYYY,
// inserting separators as the digits arrive.
func FormatDate(raw string) string {
	digits := onlyDigits(raw, 8)
	switch {
	case len(digits) > 4:
		return digits[:2] + "-" + digits[2:4] + "-" + digits[4:]
	case len(digits) > 2:
		return digits[:2] + "-" + digits[2:]
	default:
		return digits
	}
}

// FormatTime strips non-digits and renders what is left as HH:MM. The value
// is not range checked.
func FormatTime(raw string) string {
	digits := onlyDigits(raw, 4)
	if len(digits) > 2 {
		return digits[:2] + ":" + digits[2:]
	}
	return digits
}

func onlyDigits(raw string, limit int) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == limit {
				break
			}
		}
	}
	return b.String()
}

type Validator struct {
	now func() time.Time
}

type Option func(*Validator)

func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateDate formats raw input. Incomplete input is returned as is; a
// complete date must be a real calendar day, not before today, and within
// the booking window. On failure the date is cleared and an error returned.
func (v *Validator) ValidateDate(raw string) (string, error) {
	formatted := FormatDate(raw)
	if len(formatted) < len(DateLayout) {
		return formatted, nil
	}
	if err := v.check(formatted); err != nil {
		return "", err
	}
	return formatted, nil
}

func (v *Validator) check(formatted string) error {
	month, _ := strconv.Atoi(formatted[0:2])
	day, _ := strconv.Atoi(formatted[3:5])
	year, _ := strconv.Atoi(formatted[6:10])

	// early exit only; the round trip below decides
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return domain.NewValidationError("date", "month or day out of range")
	}

	now := v.now()
	if year < now.Year() || year > now.Year()+maxYearsAhead {
		return domain.NewValidationError("date", "year must be within the next "+strconv.Itoa(maxYearsAhead)+" years")
	}

	loc := now.Location()
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return domain.NewValidationError("date", formatted+" is not a calendar date")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if date.Before(today) {
		return domain.NewValidationError("date", "must not be in the past")
	}
	return nil
}

// Parse turns the typed date and time into an appointment. Both empty means
// no appointment and returns nil.
func (v *Validator) Parse(date, clock string) (*domain.Appointment, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" && clock == "" {
		return nil, nil
	}
	if date == "" {
		return nil, domain.NewValidationError("date", "is required when a time is given")
	}

	formatted, err := v.ValidateDate(date)
	if err != nil {
		return nil, err
	}
	if len(formatted) < len(DateLayout) {
		return nil, domain.NewValidationError("date", "must be MM-DD-YYYY")
	}

	return &domain.Appointment{Date: formatted, Time: FormatTime(clock)}, nil
}
