package daterange

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// Layout is the wire format of a calendar day.
const Layout = "2006-01-02"

const day = 24 * time.Hour

var (
	ErrInvalidRange = errors.New("daterange: end must not precede start")
	ErrInvalidDate  = errors.New("daterange: invalid date")
)

// Range is an inclusive interval of calendar days. Both ends are normalized
// to UTC midnight so that equal days compare equal.
type Range struct {
	Start time.Time
	End   time.Time
}

// New builds a range truncating both ends to their calendar day.
func New(start, end time.Time) (Range, error) {
	r := Range{Start: Day(start), End: Day(end)}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Parse builds a range from two "YYYY-MM-DD" strings.
func Parse(start, end string) (Range, error) {
	s, err := ParseDay(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return Range{}, err
	}
	return New(s, e)
}

// MustParse panics on malformed input; used by fixtures and tests.
func MustParse(start, end string) Range {
	r, err := Parse(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseDay parses a calendar day.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

// Day truncates t to midnight UTC of the same calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Nights is the ceiling of the day difference between start and end.
func (r Range) Nights() int {
	return int(math.Ceil(r.End.Sub(r.Start).Hours() / 24))
}

// ContainsDate reports whether t's calendar day lies within the range, ends included.
func (r Range) ContainsDate(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Contains reports whether other lies entirely within r, ends included.
func (r Range) Contains(other Range) bool {
	return r.ContainsDate(other.Start) && r.ContainsDate(other.End)
}

// Conflicts reports whether candidate collides with r: r contains the
// candidate's start, or its end, or the candidate swallows r entirely.
func (r Range) Conflicts(candidate Range) bool {
	return r.ContainsDate(candidate.Start) ||
		r.ContainsDate(candidate.End) ||
		candidate.Contains(r)
}

// Equal compares calendar days.
func (r Range) Equal(other Range) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// Days lists every calendar day in the range.
func (r Range) Days() []time.Time {
	if r.Validate() != nil {
		return nil
	}
	out := make([]time.Time, 0, r.Nights()+1)
	for d := r.Start; !d.After(r.End); d = d.Add(day) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return r.Start.Format(Layout) + ".." + r.End.Format(Layout)
}

type wireRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsZero reports whether r is the unset Range.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// MarshalJSON writes the zero Range as null so it survives a round trip.
func (r Range) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(wireRange{Start: r.Start.Format(Layout), End: r.End.Format(Layout)})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Range{}
		return nil
	}
	var w wireRange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := Parse(w.Start, w.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
