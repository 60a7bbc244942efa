package documents

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder fills empty cells so columns keep their alignment.
const Placeholder = "-"

const DateLayout = "Monday, 2 January 2006"

func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return strings.TrimSpace(s)
}

func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	return t.Format(DateLayout)
}

func FormatWeight(d decimal.Decimal) string {
	return d.StringFixed(1) + " kg"
}

func FormatOptionalWeight(d decimal.Decimal, ok bool) string {
	if !ok {
		return Placeholder
	}
	return FormatWeight(d)
}

func FormatInt(n int) string {
	return strconv.Itoa(n)
}

func FormatCount(n int) string {
	if n <= 0 {
		return Placeholder
	}
	return strconv.Itoa(n)
}

func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			keep = append(keep, strings.TrimSpace(p))
		}
	}
	return strings.Join(keep, sep)
}
