// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatMoney formats a currency amount, trimming cents on large values.
// e.g., 7.5 -> "$7.50", 1234.5 -> "$1,234"
func FormatMoney(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	var s string
	if amount >= 1000 {
		s = "$" + FormatNumber(int64(amount+0.5))
	} else {
		s = fmt.Sprintf("$%.2f", amount)
	}

	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDate renders a timestamp as a short local date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2")
}

// FormatCooldown renders remaining cooldown time in days, or "ready".
func FormatCooldown(d time.Duration) string {
	if d <= 0 {
		return "ready"
	}
	days := int(d.Hours() / 24)
	if days < 1 {
		return "<1d"
	}
	return fmt.Sprintf("%dd", days)
}
