// Package money holds the currency and calendar helpers shared by the
// pricing, adjustment, billing and transaction packages. Everything here
// is pure; all amounts are shopspring decimals, floats never carry money.
package money

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round2 rounds to cents with banker's rounding. Used wherever a derived
// amount is persisted (sums, balances).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// RoundHalfUp2 rounds to cents half away from zero. The adjustment engine
// uses this when scaling price bands, matching how operators publish
// adjusted tables.
func RoundHalfUp2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AddMonths advances t by n months keeping the day of month, clamped to
// the last valid day when the target month is shorter (Jan 31 + 1 month
// = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns a date in (year, month) on the requested day, pulled
// back to the month's last day when the day does not exist.
func ClampDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NthBusinessDay resolves the nth business day (Mon-Fri) of a month,
// used for billing due dates. n starts at 1. If the month runs out of
// business days the last one is returned.
func NthBusinessDay(year int, month time.Month, n int) time.Time {
	if n < 1 {
		n = 1
	}
	last := DaysInMonth(year, month)
	count := 0
	var latest time.Time
	for day := 1; day <= last; day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		count++
		latest = d
		if count == n {
			return d
		}
	}
	return latest
}

// AgeInYear computes age by calendar year only: year - birth year. This
// whole-year approximation is the system's established rule for price
// band resolution; day-accurate age would move band boundaries near
// birthdays and is deliberately not used.
func AgeInYear(birth time.Time, year int) int {
	age := year - birth.Year()
	if age < 0 {
		return 0
	}
	return age
}

// Split divides amount into n parts that sum exactly to amount. The
// division floors at the cent and hands the remainder, one cent each, to
// the earliest parts: 100.00 / 3 = [33.34, 33.33, 33.33].
func Split(amount decimal.Decimal, n int) []decimal.Decimal {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	base := cents / int64(n)
	rem := cents % int64(n)
	parts := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		c := base
		if int64(i) < rem {
			c++
		}
		parts[i] = decimal.New(c, -2)
	}
	return parts
}
