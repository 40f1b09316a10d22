package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const (
	// DateLayout is the stored calendar date format.
	DateLayout = "2006-01-02"
	// TimeLayout is the stored 12-hour clock format.
	TimeLayout = "03:04 PM"

	// maxOffsetMinutes covers UTC-14:00 through UTC+14:00.
	maxOffsetMinutes = 14 * 60
)

var wallClockLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var timeLayouts = []string{
	"03:04 PM",
	"3:04 PM",
	"03:04PM",
	"3:04PM",
	"15:04",
}

// ZoneForOffset converts a browser-style timezone offset (minutes, UTC minus local)
// into a fixed zone. A nil offset yields nil.
func ZoneForOffset(offsetMinutes *int) (*time.Location, error) {
	if offsetMinutes == nil {
		return nil, nil
	}
	off := *offsetMinutes
	if off < -maxOffsetMinutes || off > maxOffsetMinutes {
		return nil, models.NewValidationError("timezoneOffset", fmt.Sprintf("must be between %d and %d minutes", -maxOffsetMinutes, maxOffsetMinutes))
	}
	return time.FixedZone("", -off*60), nil
}

// NormalizeEntryDate turns a submitted date into the user's local calendar date.
//
// raw may be an RFC 3339 timestamp, a zone-less "YYYY-MM-DDTHH:MM[:SS]" wall clock,
// or a plain "YYYY-MM-DD". Timestamps are moved into zone when it is non-nil and
// keep their own offset otherwise; wall clocks are read in zone (UTC when nil).
// The returned instant is zero for a plain date.
func NormalizeEntryDate(raw string, zone *time.Location) (string, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", time.Time{}, models.NewValidationError("date", "is required")
	}

	if d, err := time.Parse(DateLayout, raw); err == nil {
		return d.Format(DateLayout), time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		if zone != nil {
			t = t.In(zone)
		}
		return t.Format(DateLayout), t, nil
	}

	loc := zone
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Format(DateLayout), t, nil
		}
	}

	return "", time.Time{}, models.NewValidationError("date", "invalid date format")
}

// NormalizeEntryTime returns the stored "hh:mm AM/PM" form of raw. When raw is
// empty the time is taken from at, or from now in zone when at is zero.
func NormalizeEntryTime(raw string, at time.Time, zone *time.Location, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		upper := strings.ToUpper(raw)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, upper); err == nil {
				return t.Format(TimeLayout), nil
			}
		}
		return "", models.NewValidationError("time", "must look like 09:30 PM or 21:30")
	}

	if at.IsZero() {
		at = now
		if zone != nil {
			at = at.In(zone)
		} else {
			at = at.UTC()
		}
	}
	return at.Format(TimeLayout), nil
}
