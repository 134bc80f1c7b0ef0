package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// ErrNoTraders is returned when a source yields an empty collection.
var ErrNoTraders = errors.New("no traders in source")

// Decode reads a trader collection. Both {"traders": [...]} and a bare
// array are accepted.
func Decode(r io.Reader) ([]model.Trader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading traders: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) ([]model.Trader, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoTraders
	}

	var traders []model.Trader
	if data[0] == '[' {
		if err := json.Unmarshal(data, &traders); err != nil {
			return nil, fmt.Errorf("error decoding traders: %w", err)
		}
	} else {
		var doc model.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("error decoding traders: %w", err)
		}
		traders = doc.Traders
	}

	if len(traders) == 0 {
		return nil, ErrNoTraders
	}
	model.NormalizePercents(traders)
	return traders, nil
}
