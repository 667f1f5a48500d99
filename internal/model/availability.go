package model

import "time"

// TutorAvailability is a recurring weekly window published by a tutor.
// Windows are expressed in UTC wall-clock time.
//
// Fields:
//  DayOfWeek – 0 (Sunday) to 6 (Saturday).
//  StartTime – "HH:MM", inclusive.
//  EndTime   – "HH:MM", exclusive; always after StartTime.
type TutorAvailability struct {
	ID          string    `json:"id"`           // tutor_availability.id
	TutorID     string    `json:"tutor_id"`     // tutor_availability.tutor_id
	DayOfWeek   int       `json:"day_of_week"`  // tutor_availability.day_of_week
	StartTime   string    `json:"start_time"`   // tutor_availability.start_time
	EndTime     string    `json:"end_time"`     // tutor_availability.end_time
	IsRecurring bool      `json:"is_recurring"` // tutor_availability.is_recurring
	IsActive    bool      `json:"is_active"`    // tutor_availability.is_active
	CreatedAt   time.Time `json:"created_at"`   // tutor_availability.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // tutor_availability.updated_at
}

// Covers reports whether the [start, end) interval falls inside this
// window.  Intervals crossing midnight are never covered.
func (a TutorAvailability) Covers(start, end time.Time) bool {
	if !a.IsActive {
		return false
	}
	start, end = start.UTC(), end.UTC()
	if int(start.Weekday()) != a.DayOfWeek || start.YearDay() != end.Add(-time.Second).YearDay() {
		return false
	}
	from, ok1 := ClockMinutes(a.StartTime)
	to, ok2 := ClockMinutes(a.EndTime)
	if !ok1 || !ok2 {
		return false
	}
	s := start.Hour()*60 + start.Minute()
	e := s + int(end.Sub(start)/time.Minute)
	return s >= from && e <= to
}

// ClockMinutes parses "HH:MM" into minutes after midnight.
func ClockMinutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
