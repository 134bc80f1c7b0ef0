package table

import (
	"math"
	"strings"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// Kind classifies a normalized field value.
type Kind int

// Value kinds, ordered from lowest to highest.
const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is a field normalized for comparison. Display strings never reach
// the comparator; durations arrive as minutes, percentages as points and PNL
// as a signed amount.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Missing is the value of an unknown or malformed field.
func Missing() Value { return Value{Kind: KindMissing} }

// Number wraps a numeric value. NaN is treated as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{Kind: KindNumber, Num: f}
}

// Text wraps a string compared case-insensitively.
func Text(s string) Value {
	return Value{Kind: KindText, Text: strings.ToLower(s)}
}

// Compare orders two values: missing values first, then numbers, then text.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(a.Text, b.Text)
	}
	return 0
}

// FromPercent normalizes a percentage to its points.
func FromPercent(p model.Percent) Value {
	if !p.Valid {
		return Missing()
	}
	return Number(p.Value)
}

// FromCount normalizes a count. Unknown counts are missing.
func FromCount(c model.Count) Value {
	if !c.Valid {
		return Missing()
	}
	return Number(float64(c.Value))
}

// FromMinutes normalizes a duration to minutes.
func FromMinutes(m model.Minutes) Value {
	if !m.Valid {
		return Missing()
	}
	return Number(float64(m.Value))
}

// FromMoney normalizes a single amount.
func FromMoney(m model.Money) Value {
	if !m.Valid {
		return Missing()
	}
	return Number(m.Float())
}

// FromAmount normalizes a monetary pair on its native (SOL) amount.
func FromAmount(a model.Amount) Value {
	return FromMoney(a.SOL)
}

// FromPNL normalizes a realized PNL to its signed SOL amount.
func FromPNL(p model.PNL) Value {
	return FromMoney(p.Signed())
}

// FromTrades normalizes a wins/total pair on its total.
func FromTrades(t model.TradeCount) Value {
	return FromCount(t.Total)
}
