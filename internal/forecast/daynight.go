package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeOfDay places an "HH:MM:SS" clock reading on anchor's calendar day, in
// anchor's location, with the sub-second part zeroed.
func ParseTimeOfDay(anchor time.Time, hhmmss string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(hhmmss), ":")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("time of day %q: want HH:MM:SS", hhmmss)
	}
	var v [3]int
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return time.Time{}, fmt.Errorf("time of day %q: bad field %q", hhmmss, p)
		}
		v[i] = n
	}
	y, m, d := anchor.Date()
	return time.Date(y, m, d, v[0], v[1], v[2], 0, anchor.Location()), nil
}

// DeriveDayNight reports whether now lies in [sunrise, sunset). Both boundaries
// are read as clock times on now's own day.
func DeriveDayNight(now time.Time, sunrise, sunset string) (bool, error) {
	rise, err := ParseTimeOfDay(now, sunrise)
	if err != nil {
		return false, err
	}
	set, err := ParseTimeOfDay(now, sunset)
	if err != nil {
		return false, err
	}
	return !now.Before(rise) && now.Before(set), nil
}

// FormatTimeOfDay renders t as "H:MM" on a 24-hour clock.
func FormatTimeOfDay(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}

// LocalNow converts the response's epoch into a wall-clock instant at the queried
// place. tzOffsetHours comes from the response when present; otherwise fallback
// is used (nil means UTC).
func LocalNow(epochSeconds int64, tzOffsetHours *float64, fallback *time.Location) time.Time {
	t := time.Unix(epochSeconds, 0)
	if tzOffsetHours != nil {
		secs := int(*tzOffsetHours * 3600)
		return t.In(time.FixedZone(offsetName(secs), secs))
	}
	if fallback == nil {
		fallback = time.UTC
	}
	return t.In(fallback)
}

func offsetName(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}
