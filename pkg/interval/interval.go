package interval

import (
	"fmt"
	"time"
)

const (
	// FirstSlotMinute is the minute of day of the first slot (00:15).
	FirstSlotMinute = 15
	// SlotStep separates consecutive slots.
	SlotStep = 30 * time.Minute
	// MaxSlotsPerDay bounds the output of Enumerate.
	MaxSlotsPerDay = 48

	minutesPerDay = 24 * 60
)

// Label is a zero-padded HHMM time of day.
type Label string

// String returns the raw HHMM text.
func (l Label) String() string {
	return string(l)
}

// Enumerate returns the half-hour slot labels of date starting at 00:15.
//
// For a final day the end of the window is min(end of day, now). The clamp is
// applied literally: a final day in the past keeps all slots, a final day in
// the future yields an empty slice.
func Enumerate(date time.Time, isFinalDay bool, now time.Time) []Label {
	loc := date.Location()
	y, m, d := date.Date()

	end := time.Date(y, m, d, 23, 59, 59, 999999000, loc)
	if isFinalDay && now.Before(end) {
		end = now
	}

	labels := make([]Label, 0, MaxSlotsPerDay)
	step := int(SlotStep / time.Minute)
	for minute := FirstSlotMinute; minute < minutesPerDay; minute += step {
		slot := time.Date(y, m, d, 0, minute, 0, 0, loc)
		if slot.After(end) {
			break
		}
		labels = append(labels, labelFor(minute))
	}
	return labels
}

func labelFor(minuteOfDay int) Label {
	return Label(fmt.Sprintf("%02d%02d", minuteOfDay/60, minuteOfDay%60))
}
