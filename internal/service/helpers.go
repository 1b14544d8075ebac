package service

import (
	"strings"
	"time"
)

var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

const msgScheduleInPast = "Scheduled time must be in the future"

// ParseScheduleTime accepts RFC 3339 timestamps and the zone-less
// datetime-local forms sent by browsers, which are read as UTC.
func ParseScheduleTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newValidationError("scheduledFor", "Valid date required")
}

// futureScheduleTime parses raw and requires it to be strictly after now.
// Task queues fire on whole seconds, so the fraction is dropped before the
// comparison.
func futureScheduleTime(raw string, now time.Time) (time.Time, error) {
	at, err := ParseScheduleTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	at = at.Truncate(time.Second)
	if !at.After(now) {
		return time.Time{}, newValidationError("scheduledFor", msgScheduleInPast)
	}
	return at, nil
}

// parseStatsDate accepts a timestamp or a plain date. A plain end date covers
// the whole day.
func parseStatsDate(field, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, newValidationError(field, capitalize(field)+" must be a date")
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
