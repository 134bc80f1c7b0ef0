// Package validation drops leaderboard records that cannot be displayed.
package validation

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// ValidationOptions holds configuration for the validation process
type ValidationOptions struct {
	// RequireRank drops traders without a positive rank
	RequireRank bool

	// RequireIdentity drops traders with neither a name nor a wallet
	RequireIdentity bool

	// DropDuplicateIDs keeps only the first trader for each id
	DropDuplicateIDs bool
}

// DefaultValidationOptions returns sensible defaults for validation
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		RequireRank:      true,
		RequireIdentity:  true,
		DropDuplicateIDs: true,
	}
}

// FilterInvalid removes traders that fail basic validation criteria.
// Malformed metric fields are kept; they sort lowest.
func FilterInvalid(traders []model.Trader) []model.Trader {
	return FilterInvalidWithOptions(traders, DefaultValidationOptions())
}

// FilterInvalidWithOptions removes traders with custom validation options.
func FilterInvalidWithOptions(traders []model.Trader, opts ValidationOptions) []model.Trader {
	kept := selectTraders(traders, opts)
	valid := make([]model.Trader, 0, len(kept))
	for _, i := range kept {
		t := traders[i]
		t.TokenTrades = filterTrades(t.ID, t.TokenTrades)
		valid = append(valid, t)
	}
	return valid
}

// FilterInvalidConcurrently validates token trades of large collections in
// parallel. Trader-level checks, including duplicate detection, stay
// sequential so the result matches FilterInvalidWithOptions.
func FilterInvalidConcurrently(traders []model.Trader, opts ValidationOptions) []model.Trader {
	if len(traders) < 100 {
		// For small datasets, parallel processing overhead isn't worth it
		return FilterInvalidWithOptions(traders, opts)
	}

	kept := selectTraders(traders, opts)
	valid := make([]model.Trader, len(kept))

	workerCount := 4
	jobs := make(chan int)
	wg := sync.WaitGroup{}
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				t := traders[kept[j]]
				t.TokenTrades = filterTrades(t.ID, t.TokenTrades)
				valid[j] = t
			}
		}()
	}
	for j := range kept {
		jobs <- j
	}
	close(jobs)
	wg.Wait()

	return valid
}

// selectTraders returns the indexes of the traders that pass, in order
func selectTraders(traders []model.Trader, opts ValidationOptions) []int {
	seen := make(map[model.ID]bool, len(traders))
	kept := make([]int, 0, len(traders))
	for i, t := range traders {
		reason := invalidReason(t, opts)
		if reason == "" && opts.DropDuplicateIDs {
			if seen[t.ID] {
				reason = "duplicate id"
			}
			seen[t.ID] = true
		}
		if reason != "" {
			logrus.WithFields(logrus.Fields{
				"id":     t.ID,
				"rank":   t.Rank,
				"name":   t.Name,
				"reason": reason,
			}).Debug("Filtered invalid trader")
			continue
		}
		kept = append(kept, i)
	}
	return kept
}

// invalidReason checks a single trader and returns why it cannot be shown
func invalidReason(t model.Trader, opts ValidationOptions) string {
	if t.ID == "" {
		return "missing id"
	}
	if opts.RequireRank && t.Rank <= 0 {
		return "non-positive rank"
	}
	if opts.RequireIdentity && strings.TrimSpace(t.Name) == "" && strings.TrimSpace(t.Wallet) == "" {
		return "no name or wallet"
	}
	return ""
}

// filterTrades drops token trades without an id or a name
func filterTrades(owner model.ID, trades []model.TokenTrade) []model.TokenTrade {
	if trades == nil {
		return nil
	}
	valid := make([]model.TokenTrade, 0, len(trades))
	for _, tt := range trades {
		if tt.ID == "" || strings.TrimSpace(tt.Name) == "" {
			logrus.WithFields(logrus.Fields{
				"trader": owner,
				"id":     tt.ID,
				"name":   tt.Name,
			}).Debug("Filtered invalid token trade")
			continue
		}
		valid = append(valid, tt)
	}
	return valid
}

// AssignTradeRanks gives every token trade its natural 1-based position
// within its trader's list. Traders are modified in place.
func AssignTradeRanks(traders []model.Trader) {
	for i := range traders {
		trades := make([]model.TokenTrade, len(traders[i].TokenTrades))
		for j, tt := range traders[i].TokenTrades {
			tt.Rank = j + 1
			trades[j] = tt
		}
		if traders[i].TokenTrades == nil {
			trades = nil
		}
		traders[i].TokenTrades = trades
	}
}

// MalformedWinRateShare is the fraction of traders whose win rate could not
// be parsed. It is 0 for an empty collection.
func MalformedWinRateShare(traders []model.Trader) float64 {
	if len(traders) == 0 {
		return 0
	}
	bad := 0
	for _, t := range traders {
		if !t.WinRate.Valid {
			bad++
		}
	}
	return float64(bad) / float64(len(traders))
}
