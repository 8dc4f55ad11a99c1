package planning

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/mural/internal/errs"
)

// EffectivityPolicy selects how deck targets are filtered by date.
type EffectivityPolicy int

const (
	AllTargets EffectivityPolicy = iota
	AllActiveTargets
	MonthOnly
	MonthAndDay
)

// standingDurationDays marks targets that are effective all year.
const standingDurationDays = 365

// ActiveStatus is the deck status flag of an active target.
const ActiveStatus = "A"

var effectivityNames = map[string]EffectivityPolicy{
	"all_targets":        AllTargets,
	"all_active_targets": AllActiveTargets,
	"month_only":         MonthOnly,
	"month_and_day":      MonthAndDay,
}

// ParseEffectivityPolicy maps a configuration string onto a policy.
func ParseEffectivityPolicy(s string) (EffectivityPolicy, error) {
	if p, ok := effectivityNames[strings.ToLower(s)]; ok {
		return p, nil
	}
	return 0, errs.NewInputError("Effectivity", "Parse", fmt.Sprintf("unknown effectivity policy %q", s))
}

func (p EffectivityPolicy) String() string {
	for name, v := range effectivityNames {
		if v == p {
			return strings.ToUpper(name)
		}
	}
	return "UNKNOWN"
}

// Effectivity filters targets against the simulation window.
type Effectivity struct {
	Policy EffectivityPolicy
	Start  time.Time
	End    time.Time
}

// EffectiveTarget reports whether a target with the given status, MMDD
// date string and duration in days applies to the simulation window.
func (e *Effectivity) EffectiveTarget(status, dateString string, durationDays int) (bool, error) {
	switch e.Policy {
	case AllTargets:
		return true, nil
	case AllActiveTargets:
		return strings.EqualFold(status, ActiveStatus), nil
	}
	if durationDays >= standingDurationDays {
		return true, nil
	}

	month, day, err := parseMonthDay(dateString)
	if err != nil {
		return false, err
	}
	if e.Policy == MonthOnly {
		day = 1
	}

	// A MMDD window may fall in any year the simulation touches, or start
	// the year before and run into it.
	loc := e.Start.Location()
	for year := e.Start.Year() - 1; year <= e.End.Year(); year++ {
		start := time.Date(year, month, day, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, durationDays)
		if e.Policy == MonthOnly {
			monthEnd := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
			if end.Before(monthEnd) {
				end = monthEnd
			}
		}
		if !start.After(e.End) && end.After(e.Start) {
			return true, nil
		}
	}
	return false, nil
}

func parseMonthDay(s string) (time.Month, int, error) {
	if len(s) != 4 {
		return 0, 0, fmt.Errorf("date %q is not MMDD", s)
	}
	mm, err := strconv.Atoi(s[:2])
	if err != nil || mm < 1 || mm > 12 {
		return 0, 0, fmt.Errorf("date %q has an invalid month", s)
	}
	dd, err := strconv.Atoi(s[2:])
	if err != nil || dd < 1 || dd > 31 {
		return 0, 0, fmt.Errorf("date %q has an invalid day", s)
	}
	return time.Month(mm), dd, nil
}
