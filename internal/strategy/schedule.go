package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"quant-backtest/internal/model"
)

// ErrInvalidFrequency is returned for offsets ParseFrequency does not understand.
var ErrInvalidFrequency = errors.New("invalid rebalance frequency")

type periodUnit int

const (
	unitDay periodUnit = iota
	unitBusinessDay
	unitWeek
	unitMonthEnd
	unitMonthStart
	unitBusinessMonthEnd
	unitBusinessMonthStart
	unitQuarterEnd
	unitQuarterStart
	unitYearEnd
	unitYearStart
)

// Frequency is a periodic anchor schedule, written the way pandas offset
// aliases are: "D", "B", "W-FRI", "M"/"ME", "MS", "BME", "BMS", "Q"/"QE",
// "QS", "A"/"Y"/"YE", "YS".
type Frequency struct {
	unit    periodUnit
	weekday time.Weekday
	alias   string
}

var weekdayCodes = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

// ParseFrequency parses an offset alias. Matching is case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	alias := strings.ToUpper(strings.TrimSpace(s))
	f := Frequency{alias: alias}
	switch alias {
	case "D":
		f.unit = unitDay
	case "B":
		f.unit = unitBusinessDay
	case "W":
		f.unit, f.weekday = unitWeek, time.Sunday
	case "M", "ME":
		f.unit = unitMonthEnd
	case "MS":
		f.unit = unitMonthStart
	case "BM", "BME":
		f.unit = unitBusinessMonthEnd
	case "BMS":
		f.unit = unitBusinessMonthStart
	case "Q", "QE":
		f.unit = unitQuarterEnd
	case "QS":
		f.unit = unitQuarterStart
	case "A", "Y", "YE":
		f.unit = unitYearEnd
	case "AS", "YS":
		f.unit = unitYearStart
	default:
		code, ok := strings.CutPrefix(alias, "W-")
		if !ok {
			return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
		}
		wd, ok := weekdayCodes[code]
		if !ok {
			return Frequency{}, fmt.Errorf("%w: unknown weekday in %q", ErrInvalidFrequency, s)
		}
		f.unit, f.weekday = unitWeek, wd
	}
	return f, nil
}

// MustParseFrequency is ParseFrequency for constants known to be valid.
func MustParseFrequency(s string) Frequency {
	f, err := ParseFrequency(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Frequency) String() string { return f.alias }

// Dates lists every anchor day in [start, end], at midnight in start's location.
func (f Frequency) Dates(start, end time.Time) []time.Time {
	var out []time.Time
	last := model.DayKey(end.In(start.Location()))
	for d := model.DayKey(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if f.matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func (f Frequency) matches(d time.Time) bool {
	switch f.unit {
	case unitDay:
		return true
	case unitBusinessDay:
		return isBusinessDay(d)
	case unitWeek:
		return d.Weekday() == f.weekday
	case unitMonthEnd:
		return isMonthEnd(d)
	case unitMonthStart:
		return d.Day() == 1
	case unitBusinessMonthEnd:
		return isBusinessDay(d) && nextBusinessDay(d).Month() != d.Month()
	case unitBusinessMonthStart:
		return isBusinessDay(d) && prevBusinessDay(d).Month() != d.Month()
	case unitQuarterEnd:
		return isMonthEnd(d) && d.Month()%3 == 0
	case unitQuarterStart:
		return d.Day() == 1 && (d.Month()-1)%3 == 0
	case unitYearEnd:
		return d.Month() == time.December && d.Day() == 31
	case unitYearStart:
		return d.Month() == time.January && d.Day() == 1
	}
	return false
}

func isBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func isMonthEnd(d time.Time) bool { return d.AddDate(0, 0, 1).Month() != d.Month() }

func nextBusinessDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for !isBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func prevBusinessDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, -1)
	for !isBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// RebalanceDates intersects the anchor days between the first and last
// trading date with the trading dates themselves. tradingDates must be sorted
// ascending; the returned timestamps are the trading dates' own values.
func RebalanceDates(f Frequency, tradingDates []time.Time) []time.Time {
	if len(tradingDates) == 0 {
		return nil
	}
	anchors := map[time.Time]bool{}
	for _, d := range f.Dates(tradingDates[0], tradingDates[len(tradingDates)-1]) {
		anchors[d] = true
	}
	loc := tradingDates[0].Location()
	var out []time.Time
	for _, d := range tradingDates {
		if !anchors[model.DayKey(d.In(loc))] {
			continue
		}
		if n := len(out); n > 0 && model.SameDay(out[n-1], d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
