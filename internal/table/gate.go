package table

import (
	"fmt"
	"strings"
)

// WalletContext is the external wallet collaborator. The table only reads
// whether a wallet is connected.
type WalletContext interface {
	Connected() bool
}

// StaticWallet is a WalletContext with a fixed answer.
type StaticWallet bool

// Connected implements WalletContext.
func (w StaticWallet) Connected() bool { return bool(w) }

// Prompter receives the request to show the connect-wallet prompt.
type Prompter interface {
	PromptConnect(action ActionType)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ActionType)

// PromptConnect implements Prompter.
func (f PrompterFunc) PromptConnect(action ActionType) { f(action) }

// GatePolicy is the set of action types that require a connected wallet.
type GatePolicy map[ActionType]bool

// DefaultGatePolicy gates sorting, searching and opening a row. Tab and
// time-frame switches stay open.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		ActionSort:   true,
		ActionSearch: true,
		ActionOpen:   true,
	}
}

// ParseGatePolicy reads a comma separated list such as "sort,search,open".
// "none" yields an empty policy.
func ParseGatePolicy(s string) (GatePolicy, error) {
	policy := GatePolicy{}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "none" {
			continue
		}
		action := ActionType(part)
		switch action {
		case ActionSort, ActionSearch, ActionOpen, ActionTab, ActionTimeFrame:
			policy[action] = true
		default:
			return nil, fmt.Errorf("unknown gated action %q", part)
		}
	}
	return policy, nil
}

// Gate checks wallet connection before a gated action mutates state. It owns
// no wallet state.
type Gate struct {
	policy   GatePolicy
	onDenied func(ActionType)
}

// NewGate creates a gate for policy. A nil policy gates nothing.
func NewGate(policy GatePolicy) *Gate {
	return &Gate{policy: policy}
}

// WithDeniedHook registers a callback run on every denial, used for metrics.
func (g *Gate) WithDeniedHook(hook func(ActionType)) *Gate {
	g.onDenied = hook
	return g
}

// Gated reports whether action requires a connected wallet.
func (g *Gate) Gated(action ActionType) bool {
	return g != nil && g.policy[action]
}

// Allow returns true when action may proceed. A denied action triggers the
// prompter and is reported as not permitted.
func (g *Gate) Allow(wallet WalletContext, action ActionType, prompter Prompter) bool {
	if !g.Gated(action) {
		return true
	}
	if wallet != nil && wallet.Connected() {
		return true
	}

	if prompter != nil {
		prompter.PromptConnect(action)
	}
	if g.onDenied != nil {
		g.onDenied(action)
	}
	return false
}
