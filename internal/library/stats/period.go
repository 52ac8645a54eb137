package stats

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type PeriodKind string

const (
	Monthly   PeriodKind = "monthly"
	Quarterly PeriodKind = "quarterly"
)

// Period is a closed range of calendar days in UTC.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"` // last day, inclusive
	Label string     `json:"label"`
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func MonthOf(ref time.Time) Period {
	ref = ref.UTC()
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  Monthly,
		Start: start,
		End:   start.AddDate(0, 1, -1),
		Label: fmt.Sprintf("%s %d", start.Month(), start.Year()),
	}
}

func QuarterOf(ref time.Time) Period {
	ref = ref.UTC()
	q := (int(ref.Month()) - 1) / 3
	start := time.Date(ref.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  Quarterly,
		Start: start,
		End:   start.AddDate(0, 3, -1),
		Label: fmt.Sprintf("Q%d %d", q+1, start.Year()),
	}
}

// Contains compares calendar days only.
func (p Period) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Until is the first instant after the period.
func (p Period) Until() time.Time { return p.End.AddDate(0, 0, 1) }

// EvaluationDate clamps now into the period: a finished period is evaluated
// at its last day, and so is one that has not started yet.
func (p Period) EvaluationDate(now time.Time) time.Time {
	d := day(now)
	if d.After(p.End) || d.Before(p.Start) {
		return p.End
	}
	return d
}

var refPattern = regexp.MustCompile(`^\d{4}-\d{2}(-\d{2})?$`)

// ParseReference reads YYYY-MM or YYYY-MM-DD. ok is false for anything else.
func ParseReference(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !refPattern.MatchString(s) {
		return time.Time{}, false
	}
	parts := strings.Split(s, "-")
	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	d := 1
	if len(parts) == 3 {
		d, _ = strconv.Atoi(parts[2])
	}
	t := time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC)
	// 2026-02-31 のような存在しない日付は繰り上げずに弾く
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// PeriodFor builds the monthly (default) or quarterly period around ref.
// An empty or malformed ref means now.
func PeriodFor(kind, ref string, now time.Time) Period {
	anchor, ok := ParseReference(ref)
	if !ok {
		anchor = now
	}
	if PeriodKind(kind) == Quarterly {
		return QuarterOf(anchor)
	}
	return MonthOf(anchor)
}
