// Package model defines the leaderboard records and the lenient value types
// they are decoded into.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ID identifies a trader or a token trade. Fixtures carry it as a number or
// as a string; both are kept in text form.
type ID string

// IntID returns the ID of a numeric identifier.
func IntID(n int) ID { return ID(strconv.Itoa(n)) }

// UnmarshalJSON accepts 7, "7" and "trader-abc". Anything else decodes to the
// empty ID, which validation drops.
func (id *ID) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	s, err := cast.ToStringE(v)
	if err != nil || v == nil {
		*id = ""
		return nil
	}
	*id = ID(strings.TrimSpace(s))
	return nil
}

// MarshalJSON writes integer ids as JSON numbers and everything else as a
// string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Amount is a monetary pair: the native (SOL) amount and its USD reference
// value.
type Amount struct {
	SOL Money `json:"sol"`
	USD Money `json:"usd"`
}

// PNL is a realized profit or loss. SOL and USD hold magnitudes; the sign is
// carried by IsPositive.
type PNL struct {
	SOL        Money `json:"sol"`
	USD        Money `json:"usd"`
	IsPositive bool  `json:"isPositive"`
}

// UnmarshalJSON derives IsPositive from the sign of the SOL amount when the
// fixture omits it, and stores both amounts as magnitudes.
func (p *PNL) UnmarshalJSON(data []byte) error {
	var raw struct {
		SOL        Money `json:"sol"`
		USD        Money `json:"usd"`
		IsPositive *bool `json:"isPositive"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding pnl: %w", err)
	}

	positive := !raw.SOL.Valid || !raw.SOL.Amount.IsNegative()
	if raw.IsPositive != nil {
		positive = *raw.IsPositive
	}
	raw.SOL.Amount = raw.SOL.Amount.Abs()
	raw.USD.Amount = raw.USD.Amount.Abs()

	*p = PNL{SOL: raw.SOL, USD: raw.USD, IsPositive: positive}
	return nil
}

// Signed returns the SOL amount with its true sign.
func (p PNL) Signed() Money {
	if !p.SOL.Valid {
		return Money{}
	}
	amount := p.SOL.Amount.Abs()
	if !p.IsPositive {
		amount = amount.Neg()
	}
	return Money{Amount: amount, Valid: true}
}

// String renders the signed SOL amount, e.g. "+12.5" or "-3.1".
func (p PNL) String() string {
	s := p.Signed()
	if !s.Valid {
		return "-"
	}
	if s.Amount.Sign() > 0 {
		return "+" + s.Amount.String()
	}
	return s.Amount.String()
}

// TradeCount is the wins/total pair shown as "12/40".
type TradeCount struct {
	Wins  Count `json:"wins"`
	Total Count `json:"total"`
}

func (t TradeCount) String() string {
	return fmt.Sprintf("%s/%s", t.Wins, t.Total)
}

// Trader is one leaderboard row.
type Trader struct {
	ID            ID           `json:"id"`
	Rank          int          `json:"rank"`
	Name          string       `json:"name"`
	Wallet        string       `json:"wallet"`
	Avatar        string       `json:"avatar,omitempty"`
	Twitter       string       `json:"twitter,omitempty"`
	Followers     Count        `json:"followers"`
	Tokens        Count        `json:"tokens"`
	WinRate       Percent      `json:"winRate"`
	Trades        TradeCount   `json:"trades"`
	AvgBuy        Amount       `json:"avgBuy"`
	AvgEntry      Money        `json:"avgEntry"`
	AvgHold       Minutes      `json:"avgHold"`
	RealizedPNL   PNL          `json:"realizedPNL"`
	TotalInvested Amount       `json:"totalInvested"`
	ROI           Percent      `json:"roi"`
	LastTrade     Minutes      `json:"lastTrade"`
	TokenTrades   []TokenTrade `json:"tokenTrades,omitempty"`
}

// RecordID returns the trader id.
func (t Trader) RecordID() string { return string(t.ID) }

// RecordRank returns the leaderboard rank.
func (t Trader) RecordRank() int { return t.Rank }

// ShortWallet returns the wallet in its 4+4 display form.
func (t Trader) ShortWallet() string { return FormatWallet(t.Wallet) }

// TokenTrade is one row of a trader's per-token trade table.
type TokenTrade struct {
	ID          ID         `json:"id"`
	Rank        int        `json:"-"`
	Name        string     `json:"name"`
	Wallet      string     `json:"wallet"`
	LastTrade   Minutes    `json:"lastTrade"`
	MarketCap   Money      `json:"mc"`
	Invested    Amount     `json:"invested"`
	RealizedPNL PNL        `json:"realizedPNL"`
	ROI         Percent    `json:"roi"`
	Trades      TradeCount `json:"trades"`
	Holding     Amount     `json:"holding"`
	AvgBuy      Money      `json:"avgBuy"`
	AvgSell     Money      `json:"avgSell"`
	Held        Minutes    `json:"held"`
}

// RecordID returns the trade id.
func (t TokenTrade) RecordID() string { return string(t.ID) }

// RecordRank returns the natural position of the trade in its trader's list.
func (t TokenTrade) RecordRank() int { return t.Rank }

// ShortWallet returns the token address in its 4+4 display form.
func (t TokenTrade) ShortWallet() string { return FormatWallet(t.Wallet) }

// IsHolding reports whether a position in the token is still open.
func (t TokenTrade) IsHolding() bool {
	return t.Holding.SOL.Valid && !t.Holding.SOL.Amount.Equal(decimal.Zero)
}

// Document is the on-disk fixture layout.
type Document struct {
	Traders []Trader `json:"traders"`
}
