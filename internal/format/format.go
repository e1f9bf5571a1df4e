// Package format renders money and timestamps for display.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const InvalidDate = "Invalid Date"

var printer = message.NewPrinter(language.AmericanEnglish)

var symbols = map[currency.Unit]string{
	currency.USD: "$",
	currency.EUR: "€",
	currency.GBP: "£",
	currency.INR: "₹",
	currency.JPY: "¥",
}

// Currency formats value en-US style with two decimals, e.g. "$1,234.50".
// Unknown or malformed codes fall back to USD. Codes without a known symbol
// are printed as the ISO code followed by a space.
func Currency(value float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	sym, ok := symbols[unit]
	if !ok {
		sym = unit.String() + " "
	}

	d := decimal.NewFromFloat(value).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	f, _ := d.Float64()
	return sign + sym + printer.Sprintf("%.2f", f)
}

// Date renders t as a medium date with a short time, e.g. "18 Oct 2026, 14:05".
func Date(t time.Time) string {
	if t.IsZero() {
		return InvalidDate
	}
	return t.Format("2 Jan 2006, 15:04")
}

func TimeAgo(t time.Time) string { return TimeAgoAt(t, time.Now()) }

// TimeAgoAt renders the distance from t to now in the largest whole unit:
// minutes below an hour, then hours, days, weeks, 30-day months and 365-day
// years. Counts are floored and never pluralised.
func TimeAgoAt(t, now time.Time) string {
	if t.IsZero() {
		return InvalidDate
	}
	minutes := int64(math.Floor(now.Sub(t).Minutes()))
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd ago", days)
	}
	if weeks := days / 7; weeks < 4 {
		return fmt.Sprintf("%dw ago", weeks)
	}
	if months := days / 30; months < 12 {
		return fmt.Sprintf("%dmo ago", months)
	}
	return fmt.Sprintf("%dy ago", days/365)
}
