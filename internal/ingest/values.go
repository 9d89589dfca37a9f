package ingest

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var truthy = map[string]struct{}{
	"true": {},
	"1":    {},
	"yes":  {},
	"y":    {},
	"t":    {},
}

// NormalizeBoolean reports whether s is one of the accepted truthy tokens.
// Anything else, the empty string included, is false.
func NormalizeBoolean(s string) bool {
	_, ok := truthy[strings.ToLower(strings.TrimSpace(s))]

	return ok
}

// ParseInt parses a base-10 integer, also accepting whole floats such as "5.0"
// the way spreadsheets export them. Anything unparseable yields def.
func ParseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}

	if v, err := strconv.Atoi(s); err == nil {
		return v
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}

	return def
}

func ParseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}

	return f
}

// ParseDecimal parses s as a decimal, ignoring a trailing percent sign.
func ParseDecimal(s string, def decimal.Decimal) decimal.Decimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return def
	}

	return d
}
