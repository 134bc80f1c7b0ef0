// Package circuitbreaker guards the leaderboard against swapping in a
// reloaded collection that looks broken.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/validation"
)

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, candidates rejected
	StateHalfOpen              // Testing if the source has recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned while the breaker rejects every candidate.
var ErrOpen = errors.New("circuit breaker open: keeping last good leaderboard")

// CircuitBreaker decides whether a candidate trader collection may replace
// the current one.
type CircuitBreaker struct {
	thresholds Thresholds

	state    State
	lastTrip time.Time

	// Duration before auto-reset attempt
	resetDelay time.Duration

	mu sync.RWMutex

	// Last accepted collection, used for shrink checks and as fallback
	lastGood []model.Trader

	successCount     int
	successThreshold int

	onTripCallback func(reason string, traders []model.Trader)
}

// Thresholds defines the limits that will trigger the circuit breaker
type Thresholds struct {
	// Minimum number of traders in a usable collection
	MinTraders int `json:"min_traders" yaml:"min_traders"`

	// Maximum allowed shrink against the last good collection (0.5 for 50%)
	MaxShrink float64 `json:"max_shrink" yaml:"max_shrink"`

	// Maximum share of traders with an unparseable win rate
	MaxMalformedShare float64 `json:"max_malformed_share,omitempty" yaml:"max_malformed_share"`
}

// DefaultThresholds accepts any non-empty collection that did not lose more
// than half its traders.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTraders:        1,
		MaxShrink:         0.5,
		MaxMalformedShare: 0.5,
	}
}

// New creates a new CircuitBreaker with the provided thresholds
func New(t Thresholds) *CircuitBreaker {
	return &CircuitBreaker{
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       5 * time.Minute,
		successThreshold: 3,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of accepted candidates needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(reason string, traders []model.Trader)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Check evaluates a candidate collection. A nil error means the candidate
// was accepted and recorded as the last good collection.
func (cb *CircuitBreaker) Check(traders []model.Trader) error {
	cb.mu.RLock()
	state := cb.state
	lastTripTime := cb.lastTrip
	cb.mu.RUnlock()

	if state == StateOpen {
		if time.Since(lastTripTime) > cb.resetDelay {
			cb.transitionToHalfOpen()
		} else {
			return ErrOpen
		}
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if len(traders) == 0 {
		reason := "empty trader collection"
		cb.trip(reason, traders)
		return errors.New(reason)
	}

	if len(traders) < cb.thresholds.MinTraders {
		reason := fmt.Sprintf("insufficient trader count: got %d, need %d",
			len(traders), cb.thresholds.MinTraders)
		cb.trip(reason, traders)
		return errors.New(reason)
	}

	if prev := len(cb.lastGood); prev > 0 && cb.thresholds.MaxShrink > 0 && len(traders) < prev {
		shrink := float64(prev-len(traders)) / float64(prev)
		if shrink > cb.thresholds.MaxShrink {
			reason := fmt.Sprintf("trader count shrank too much: %.2f%% (threshold: %.2f%%)",
				shrink*100, cb.thresholds.MaxShrink*100)
			cb.trip(reason, traders)
			return errors.New(reason)
		}
	}

	if cb.thresholds.MaxMalformedShare > 0 {
		share := validation.MalformedWinRateShare(traders)
		if share > cb.thresholds.MaxMalformedShare {
			reason := fmt.Sprintf("too many malformed win rates: %.2f%% (threshold: %.2f%%)",
				share*100, cb.thresholds.MaxMalformedShare*100)
			cb.trip(reason, traders)
			return errors.New(reason)
		}
	}

	logrus.Debug("Circuit breaker checks passed")

	cb.lastGood = make([]model.Trader, len(traders))
	copy(cb.lastGood, traders)

	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.Info("Circuit breaker closed: source has recovered")
		}
	}

	return nil
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.successCount = 0
	logrus.Info("Circuit breaker manually reset to closed state")
}

// LastGood returns a copy of the most recently accepted collection.
func (cb *CircuitBreaker) LastGood() []model.Trader {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if len(cb.lastGood) == 0 {
		return nil
	}
	out := make([]model.Trader, len(cb.lastGood))
	copy(out, cb.lastGood)
	return out
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen {
		cb.state = StateHalfOpen
		cb.successCount = 0
		logrus.Info("Circuit breaker half-open: testing source recovery")
	}
}

// trip sets the circuit breaker to open state. Callers hold mu.
func (cb *CircuitBreaker) trip(reason string, traders []model.Trader) {
	cb.state = StateOpen
	cb.lastTrip = time.Now()
	logrus.WithField("traders", len(traders)).Warnf("Circuit breaker tripped: %s", reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(reason, traders)
	}
}
