package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ===========================
// OPERATING HOURS MODELS
// ===========================

// ErrInvalidTimeOfDay is returned when a value is not a valid HH:MM time of day.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ErrInvalidBusinessMode is returned for an unknown business mode value.
var ErrInvalidBusinessMode = errors.New("invalid business mode")

// MinutesPerDay is the length of the business-hours clock.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes after midnight (0..1439).
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" on a 24h clock. A trailing ":SS" is accepted
// and ignored so values read back from TIME columns round-trip.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
	}

	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayOf returns the time of day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String formats the value as zero-padded HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	v, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// BusinessMode selects whether the schedule window or a forced state decides openness.
type BusinessMode string

const (
	ModeNormal      BusinessMode = "NORMAL"
	ModeForceOpen   BusinessMode = "FORCE_OPEN"
	ModeForceClosed BusinessMode = "FORCE_CLOSED"
)

// ParseBusinessMode accepts the enum names (case-insensitive) or the legacy
// numeric codes 0, 1 and 2. An empty value means NORMAL.
func ParseBusinessMode(s string) (BusinessMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "0", string(ModeNormal):
		return ModeNormal, nil
	case "1", string(ModeForceOpen):
		return ModeForceOpen, nil
	case "2", string(ModeForceClosed):
		return ModeForceClosed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBusinessMode, s)
}

// Code is the legacy numeric representation mirrored to the telephony platform.
func (m BusinessMode) Code() int {
	switch m {
	case ModeForceOpen:
		return 1
	case ModeForceClosed:
		return 2
	default:
		return 0
	}
}

// UnmarshalJSON accepts both `"FORCE_OPEN"` and `1`.
func (m *BusinessMode) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		*m = ModeNormal
		return nil
	}
	mode, err := ParseBusinessMode(raw)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// UnmarshalParam lets gin bind the mode from form-encoded bodies.
func (m *BusinessMode) UnmarshalParam(param string) error {
	mode, err := ParseBusinessMode(param)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

var _ json.Unmarshaler = (*BusinessMode)(nil)

// OperatingSchedule is the singleton business-hours row.
type OperatingSchedule struct {
	Start     TimeOfDay    `json:"start"`
	End       TimeOfDay    `json:"end"`
	Mode      BusinessMode `json:"mode"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SetOperatingHoursRequest is the body of POST /OperatingHours.
type SetOperatingHoursRequest struct {
	Start        string        `json:"start" form:"start"`
	End          string        `json:"end" form:"end"`
	BusinessMode *BusinessMode `json:"business_mode" form:"business_mode"`
}

// OperatingHoursStatus is the resolved view returned by GET /OperatingHours.
type OperatingHoursStatus struct {
	Start        string       `json:"start"`
	End          string       `json:"end"`
	Mode         BusinessMode `json:"mode"`
	BusinessMode int          `json:"business_mode"`
	IsOpen       bool         `json:"isOpen"`
	Current      string       `json:"current"`
}
