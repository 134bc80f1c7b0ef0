package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Allow(t *testing.T) {
	var prompted []ActionType
	var denied []ActionType
	prompter := PrompterFunc(func(a ActionType) { prompted = append(prompted, a) })
	gate := NewGate(DefaultGatePolicy()).WithDeniedHook(func(a ActionType) { denied = append(denied, a) })

	assert.False(t, gate.Allow(StaticWallet(false), ActionSort, prompter))
	assert.False(t, gate.Allow(nil, ActionOpen, prompter))
	assert.True(t, gate.Allow(StaticWallet(false), ActionTab, prompter))
	assert.True(t, gate.Allow(StaticWallet(true), ActionSearch, prompter))

	assert.Equal(t, []ActionType{ActionSort, ActionOpen}, prompted)
	assert.Equal(t, prompted, denied)
}

func TestGate_NilGatesNothing(t *testing.T) {
	var gate *Gate
	assert.False(t, gate.Gated(ActionSort))
	assert.True(t, gate.Allow(StaticWallet(false), ActionSort, nil))
}

func TestParseGatePolicy(t *testing.T) {
	policy, err := ParseGatePolicy("sort, Search ,timeframe")
	require.NoError(t, err)
	assert.Equal(t, GatePolicy{ActionSort: true, ActionSearch: true, ActionTimeFrame: true}, policy)

	policy, err = ParseGatePolicy("none")
	require.NoError(t, err)
	assert.Empty(t, policy)

	_, err = ParseGatePolicy("sort,fly")
	assert.Error(t, err)
}
