package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatWallet shortens an address to its first and last four characters.
// Addresses of eight characters or fewer are returned unchanged.
func FormatWallet(wallet string) string {
	r := []rune(wallet)
	if len(r) <= 8 {
		return wallet
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}

// FormatMinutes renders a duration as "45 min", "1 hour" or "2 hours 5 min".
func FormatMinutes(minutes int64) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60

	unit := "hour"
	if hours > 1 {
		unit = "hours"
	}
	if rest > 0 {
		return fmt.Sprintf("%d %s %d min", hours, unit, rest)
	}
	return fmt.Sprintf("%d %s", hours, unit)
}

// FormatCompact renders large numbers with a K or M suffix and one decimal,
// dropping a trailing ".0".
func FormatCompact(n float64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(n/1_000_000) + "M"
	case n >= 1_000:
		return trimZero(n/1_000) + "K"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func trimZero(n float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(n, 'f', 1, 64), ".0")
}
