package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Session int

const (
	S1 Session = iota
	WinterVacation
	S2
	S3
)

// Sessions lists every session in chronological order within a year.
var Sessions = []Session{S1, WinterVacation, S2, S3}

var sessionNames = map[Session]string{
	S1:             "S1",
	WinterVacation: "WV",
	S2:             "S2",
	S3:             "S3",
}

func (session Session) String() string {
	if name, ok := sessionNames[session]; ok {
		return name
	}
	return fmt.Sprintf("Session(%d)", int(session))
}

func ParseSession(value string) (Session, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "S1", "SESSION 1":
		return S1, nil
	case "WV", "WINTER", "WINTERVACATION", "WINTER VACATION":
		return WinterVacation, nil
	case "S2", "SESSION 2":
		return S2, nil
	case "S3", "SESSION 3":
		return S3, nil
	}
	return 0, fmt.Errorf("unknown session %q", value)
}

// Time is a discrete unit of academic time. The zero value is the first
// session of year 0; use Early and Never as sentinels.
type Time struct {
	Year    int
	Session Session
}

var (
	Early = Time{Year: math.MinInt32, Session: S1}
	Never = Time{Year: math.MaxInt32, Session: S3}
)

func NewTime(year int, session Session) Time {
	return Time{Year: year, Session: session}
}

func (t Time) IsEarly() bool    { return t == Early }
func (t Time) IsNever() bool    { return t == Never }
func (t Time) IsSentinel() bool { return t.IsEarly() || t.IsNever() }

// Next returns the session that follows t. Sentinels are fixed points.
func (t Time) Next() Time {
	if t.IsSentinel() {
		return t
	}
	if t.Session == S3 {
		return Time{Year: t.Year + 1, Session: S1}
	}
	return Time{Year: t.Year, Session: t.Session + 1}
}

// Previous returns the session that precedes t. Sentinels are fixed points.
func (t Time) Previous() Time {
	if t.IsSentinel() {
		return t
	}
	if t.Session == S1 {
		return Time{Year: t.Year - 1, Session: S3}
	}
	return Time{Year: t.Year, Session: t.Session - 1}
}

func (t Time) Compare(other Time) int {
	switch {
	case t.Year < other.Year:
		return -1
	case t.Year > other.Year:
		return 1
	case t.Session < other.Session:
		return -1
	case t.Session > other.Session:
		return 1
	}
	return 0
}

func (t Time) Before(other Time) bool { return t.Compare(other) < 0 }
func (t Time) After(other Time) bool  { return t.Compare(other) > 0 }

func MaxTime(times ...Time) Time {
	result := Early
	for _, t := range times {
		if t.After(result) {
			result = t
		}
	}
	return result
}

func MinTime(times ...Time) Time {
	result := Never
	for _, t := range times {
		if t.Before(result) {
			result = t
		}
	}
	return result
}

func (t Time) String() string {
	switch {
	case t.IsEarly():
		return "Early"
	case t.IsNever():
		return "Never"
	}
	return fmt.Sprintf("%d %v", t.Year, t.Session)
}

// ParseTime accepts the format produced by String, e.g. "2024 S2".
func ParseTime(value string) (Time, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "early":
		return Early, nil
	case "never", "impossible":
		return Never, nil
	}

	fields := strings.Fields(value)
	if len(fields) != 2 {
		return Time{}, fmt.Errorf("invalid time %q: expected \"<year> <session>\"", value)
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return Time{}, fmt.Errorf("invalid year in %q: %w", value, err)
	}
	session, err := ParseSession(fields[1])
	if err != nil {
		return Time{}, err
	}
	return Time{Year: year, Session: session}, nil
}
