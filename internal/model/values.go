package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// unknownTokens are the fixture spellings of "value not available".
var unknownTokens = map[string]bool{
	"":        true,
	"-":       true,
	"--":      true,
	"?":       true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"unknown": true,
	"null":    true,
}

// decodeScalar unmarshals a lenient fixture value. Objects are unwrapped
// through the first present key in keys, so {"percentage": "12%"} and "12%"
// decode to the same scalar.
func decodeScalar(data []byte, keys ...string) (interface{}, error) {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	if obj, ok := raw.(map[string]interface{}); ok {
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				return v, nil
			}
		}
		return nil, nil
	}
	return raw, nil
}

// parseFloat converts a scalar to float64. Strings may carry a currency sign,
// thousands separators, a trailing percent sign and a K/M/B suffix.
func parseFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if unknownTokens[s] {
			return 0, false
		}
		s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
		s = strings.TrimPrefix(s, "+")

		mult := 1.0
		switch {
		case strings.HasSuffix(s, "k"):
			mult, s = 1e3, strings.TrimSuffix(s, "k")
		case strings.HasSuffix(s, "m"):
			mult, s = 1e6, strings.TrimSuffix(s, "m")
		case strings.HasSuffix(s, "b"):
			mult, s = 1e9, strings.TrimSuffix(s, "b")
		}

		f, err := cast.ToFloat64E(s)
		if err != nil {
			return 0, false
		}
		return f * mult, true
	default:
		f, err := cast.ToFloat64E(t)
		return f, err == nil
	}
}

// Percent is a percentage expressed in points (75 for "75%").
type Percent struct {
	Value float64
	Valid bool

	// set while a bare JSON number waits for NormalizePercents
	number bool
}

// NewPercent returns a valid percentage.
func NewPercent(v float64) Percent {
	return Percent{Value: v, Valid: true}
}

// UnmarshalJSON accepts "75%", "75", 75, 0.75 and {"percentage": "75%"}.
// Strings are always points. Whether a bare number is points or a fraction
// depends on its column and is settled by NormalizePercents.
func (p *Percent) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data, "percentage", "value")
	if err != nil {
		return fmt.Errorf("decoding percent: %w", err)
	}
	f, ok := parseFloat(v)
	_, isNumber := v.(json.Number)
	*p = Percent{Value: f, Valid: ok, number: ok && isNumber}
	return nil
}

// NormalizePercents reads the bare numbers of each percent column of a
// document the same way. A column whose numbers all lie within [-1, 1] holds
// fractions and is scaled to points; any other column already holds points.
func NormalizePercents(traders []Trader) {
	var winRates, rois, tradeROIs []*Percent
	for i := range traders {
		t := &traders[i]
		winRates = append(winRates, &t.WinRate)
		rois = append(rois, &t.ROI)
		for j := range t.TokenTrades {
			tradeROIs = append(tradeROIs, &t.TokenTrades[j].ROI)
		}
	}
	for _, column := range [][]*Percent{winRates, rois, tradeROIs} {
		normalizeColumn(column)
	}
}

func normalizeColumn(column []*Percent) {
	fractions := false
	for _, p := range column {
		if !p.number {
			continue
		}
		if math.Abs(p.Value) > 1 {
			fractions = false
			break
		}
		fractions = true
	}

	for _, p := range column {
		if fractions && p.number {
			p.Value = math.Round(p.Value*100*1e6) / 1e6
		}
		p.number = false
	}
}

// MarshalJSON writes the display form, or null for a malformed value.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

func (p Percent) String() string {
	if !p.Valid {
		return "-"
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64) + "%"
}

// Count is a non-negative integer metric that may be unknown.
type Count struct {
	Value int64
	Valid bool
}

// NewCount returns a known count.
func NewCount(v int64) Count {
	return Count{Value: v, Valid: true}
}

// UnmarshalJSON accepts numbers, numeric strings, compact strings such as
// "12.5K" and the unknown sentinels ("-", "N/A", null).
func (c *Count) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data, "count", "value")
	if err != nil {
		return fmt.Errorf("decoding count: %w", err)
	}
	f, ok := parseFloat(v)
	if !ok || f < 0 {
		*c = Count{}
		return nil
	}
	*c = Count{Value: int64(f + 0.5), Valid: true}
	return nil
}

// MarshalJSON writes a number, or null for an unknown count.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(c.Value, 10)), nil
}

func (c Count) String() string {
	if !c.Valid {
		return "-"
	}
	return FormatCompact(float64(c.Value))
}

var durationToken = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(days?|d|hours?|hrs?|h|minutes?|mins?|m)\b`)

// Minutes is a duration measured in whole minutes.
type Minutes struct {
	Value int64
	Valid bool
}

// NewMinutes returns a known duration.
func NewMinutes(v int64) Minutes {
	return Minutes{Value: v, Valid: true}
}

// ParseMinutes reads either a bare number of minutes or a display string
// such as "2 hours 5 min", "45 min", "3h" or "1d 4h".
func ParseMinutes(s string) (Minutes, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if unknownTokens[s] {
		return Minutes{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return Minutes{}, false
		}
		return NewMinutes(int64(n + 0.5)), true
	}

	matches := durationToken.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return Minutes{}, false
	}
	var total float64
	for _, m := range matches {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Minutes{}, false
		}
		switch m[2][0] {
		case 'd':
			total += n * 24 * 60
		case 'h':
			total += n * 60
		default:
			total += n
		}
	}
	return NewMinutes(int64(total + 0.5)), true
}

// UnmarshalJSON accepts minutes as a number, a display string or
// {"time": "..."}.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data, "minutes", "time", "value")
	if err != nil {
		return fmt.Errorf("decoding minutes: %w", err)
	}
	switch t := v.(type) {
	case string:
		*m, _ = ParseMinutes(t)
	default:
		f, ok := parseFloat(t)
		if !ok || f < 0 {
			*m = Minutes{}
			return nil
		}
		*m = NewMinutes(int64(f + 0.5))
	}
	return nil
}

// MarshalJSON writes a number, or null for an unknown duration.
func (m Minutes) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(m.Value, 10)), nil
}

func (m Minutes) String() string {
	if !m.Valid {
		return "-"
	}
	return FormatMinutes(m.Value)
}

// Money is a decimal amount in a single unit.
type Money struct {
	Amount decimal.Decimal
	Valid  bool
}

// NewMoney parses a decimal string and panics on malformed input. It is meant
// for literals in code and tests.
func NewMoney(s string) Money {
	return Money{Amount: decimal.RequireFromString(s), Valid: true}
}

// UnmarshalJSON accepts numbers and strings such as "$1,250.50" or "1.2M".
func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data, "amount", "value")
	if err != nil {
		return fmt.Errorf("decoding money: %w", err)
	}
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		*m = Money{Amount: d, Valid: err == nil}
	case string:
		clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(t))
		if d, err := decimal.NewFromString(strings.TrimPrefix(clean, "+")); err == nil {
			*m = Money{Amount: d, Valid: true}
			return nil
		}
		f, ok := parseFloat(t)
		*m = Money{Amount: decimal.NewFromFloat(f), Valid: ok}
	default:
		*m = Money{}
	}
	return nil
}

// MarshalJSON writes the amount as a JSON number, or null when malformed.
func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(m.Amount.String()), nil
}

// Float returns the amount as float64 for comparisons.
func (m Money) Float() float64 {
	f, _ := m.Amount.Float64()
	return f
}

func (m Money) String() string {
	if !m.Valid {
		return "-"
	}
	return m.Amount.String()
}
