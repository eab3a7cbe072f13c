package domain

import (
	"strconv"
	"strings"
	"time"
)

// ParseDecimal coerces a table cell into an optional float. It strips
// thousands separators and embedded whitespace; empty strings, the literals
// "None" and "NULL", and anything unparsable are treated as absent rather
// than as text or zero.
func ParseDecimal(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// dateLayouts are the formats the exchange renders trade dates in. The
// English site uses month-first slash dates; ISO shows up in query params
// and exports.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
}

// ParseTradeDate coerces a table cell into a calendar date at UTC midnight.
func ParseTradeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}
