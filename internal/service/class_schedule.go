package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultSessionDurationMinutes applies when a class schedule omits its duration.
const DefaultSessionDurationMinutes = 60

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var weekdayAliases = func() map[string]string {
	aliases := make(map[string]string, len(weekdayOrder)*2)
	for _, day := range weekdayOrder {
		lower := strings.ToLower(day)
		aliases[lower] = day
		aliases[lower[:3]] = day
	}
	return aliases
}()

// ClassSchedule is the canonical form of a class's recurring weekly schedule.
type ClassSchedule struct {
	Days            []string
	Time            string
	DurationMinutes int
}

// Schedulable reports whether the class takes part in automatic expansion.
func (s ClassSchedule) Schedulable() bool {
	return s.Time != "" && len(s.Days) > 0
}

// HasDay reports whether the schedule recurs on the given weekday name.
func (s ClassSchedule) HasDay(weekday string) bool {
	for _, day := range s.Days {
		if day == weekday {
			return true
		}
	}
	return false
}

// NormalizeSchedule converts a stored default schedule into a ClassSchedule.
//
// Accepted shapes: null/empty, {"dayOfWeek","time","durationMinutes"}, an object with a
// "days" array (or single string), an array of day names or day objects sharing one time and
// duration, and a JSON string wrapping any of these. Anything else, including day objects that
// disagree on time or duration, yields an empty, non-schedulable schedule.
func NormalizeSchedule(raw []byte) ClassSchedule {
	out := ClassSchedule{DurationMinutes: DefaultSessionDurationMinutes}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return out
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return out
	}
	// double-encoded JSON text columns
	if text, ok := decoded.(string); ok {
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return out
		}
	}

	days := make(map[string]struct{})
	switch v := decoded.(type) {
	case map[string]interface{}:
		out.Time, out.DurationMinutes = collectScheduleObject(v, days)
	case []interface{}:
		// slot objects in one array must agree on time and duration
		slots := 0
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				addDay(days, entry)
			case map[string]interface{}:
				slotTime, slotDuration := collectScheduleObject(entry, days)
				if slots > 0 && (slotTime != out.Time || slotDuration != out.DurationMinutes) {
					return ClassSchedule{DurationMinutes: DefaultSessionDurationMinutes}
				}
				out.Time, out.DurationMinutes = slotTime, slotDuration
				slots++
			}
		}
	default:
		return out
	}

	for _, day := range weekdayOrder {
		if _, ok := days[day]; ok {
			out.Days = append(out.Days, day)
		}
	}
	return out
}

// collectScheduleObject adds obj's weekdays to days and returns its canonical time and duration.
func collectScheduleObject(obj map[string]interface{}, days map[string]struct{}) (string, int) {
	if day, ok := obj["dayOfWeek"].(string); ok {
		addDay(days, day)
	}
	switch v := obj["days"].(type) {
	case string:
		addDay(days, v)
	case []interface{}:
		for _, item := range v {
			if day, ok := item.(string); ok {
				addDay(days, day)
			}
		}
	}
	var slotTime string
	if t, ok := obj["time"].(string); ok {
		slotTime = canonicalTime(t)
	}
	duration := DefaultSessionDurationMinutes
	if d := scheduleDuration(obj["durationMinutes"]); d > 0 {
		duration = d
	}
	return slotTime, duration
}

func addDay(days map[string]struct{}, raw string) {
	if day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		days[day] = struct{}{}
	}
}

// canonicalTime accepts H:MM, HH:MM or HH:MM:SS and returns HH:MM, or "" when invalid.
func canonicalTime(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ""
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 || !isDigits(parts[0]) || !isDigits(parts[1]) {
		return ""
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ""
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ""
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || len(parts[2]) != 2 || !isDigits(parts[2]) || sec > 59 {
			return ""
		}
	}
	return twoDigits(hour) + ":" + twoDigits(minute)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func scheduleDuration(raw interface{}) int {
	switch v := raw.(type) {
	case float64:
		if v > 0 && v == float64(int(v)) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
