package dispatch

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const noteSeparator = "; "

// quantityEpsilonPlaces trims float noise before ceiling, so 60.000000000001 stays 60.
const quantityEpsilonPlaces = 6

var numberReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "_", "")

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// ceilQty rounds a non-negative quantity up to a whole unit.
func ceilQty(v float64) float64 {
	return math.Ceil(roundFloat(v, quantityEpsilonPlaces))
}

// parseNumber reads a spreadsheet cell as a decimal. Empty cells are zero.
func parseNumber(raw string) (decimal.Decimal, bool) {
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseFraction is parseNumber plus a trailing percent sign.
func parseFraction(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "%") {
		d, ok := parseNumber(strings.TrimSuffix(s, "%"))
		if !ok {
			return decimal.Zero, false
		}
		return d.Div(decimal.NewFromInt(100)), true
	}
	return parseNumber(s)
}

// normalizeCode turns numeric-looking identifiers such as "2.0" into "2".
func normalizeCode(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return s
	}
	return d.Truncate(0).String()
}

// appendNote joins notes with "; ", skipping blanks.
func appendNote(existing, note string) string {
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	}
	return existing + noteSeparator + note
}

// formatLeadTime prints 2 as "2" and 2.5 as "2.5".
func formatLeadTime(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeCode(v)] = struct{}{}
	}
	return set
}
