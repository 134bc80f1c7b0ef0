// Package data embeds the default leaderboard fixture.
package data

import _ "embed"

// Traders is the bundled traders.json document.
//
//go:embed traders.json
var Traders []byte
