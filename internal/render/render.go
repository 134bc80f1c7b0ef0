// Package render prints leaderboard views as terminal tables.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/yourorg/trader-leaderboard/internal/aggregate"
	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/table"
)

// Traders prints leaderboard rows followed by the summary line.
func Traders(w io.Writer, rows []model.Trader, summary aggregate.Summary) error {
	tbl := tablewriter.NewWriter(w)
	tbl.Header("#", "Tier", "Trader", "Wallet", "Followers", "Win Rate", "Trades",
		"Avg Buy", "Avg Hold", "Realized PNL", "ROI", "Last Trade")

	for _, t := range rows {
		if err := tbl.Append(
			strconv.Itoa(t.Rank),
			table.TierFor(t.Rank).Icon(),
			t.Name,
			t.ShortWallet(),
			t.Followers.String(),
			t.WinRate.String(),
			t.Trades.String(),
			t.AvgBuy.SOL.String(),
			t.AvgHold.String(),
			t.RealizedPNL.String(),
			t.ROI.String(),
			t.LastTrade.String(),
		); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	if err := tbl.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	_, err := fmt.Fprintf(w, "  %d traders | avg win rate %.1f%% | median %.1f%% | realized PNL %s SOL | %d profitable | %s followers\n",
		summary.Traders, summary.AvgWinRate, summary.MedianWinRate,
		summary.TotalRealizedPNL.StringFixed(2), summary.Profitable,
		model.FormatCompact(float64(summary.TotalFollowers)))
	return err
}

// Trades prints a trader's token trades.
func Trades(w io.Writer, trader model.Trader, rows []model.TokenTrade, summary aggregate.Summary) error {
	if _, err := fmt.Fprintf(w, "%s %s (%s) rank #%d\n",
		table.TierFor(trader.Rank).Icon(), trader.Name, trader.ShortWallet(), trader.Rank); err != nil {
		return err
	}

	tbl := tablewriter.NewWriter(w)
	tbl.Header("#", "Token", "Last Trade", "MC", "Invested", "Realized PNL", "ROI",
		"Trades", "Holding", "Avg Buy", "Avg Sell", "Held")

	for _, t := range rows {
		if err := tbl.Append(
			strconv.Itoa(t.Rank),
			t.Name,
			t.LastTrade.String(),
			t.MarketCap.String(),
			t.Invested.SOL.String(),
			t.RealizedPNL.String(),
			t.ROI.String(),
			t.Trades.String(),
			t.Holding.SOL.String(),
			t.AvgBuy.String(),
			t.AvgSell.String(),
			t.Held.String(),
		); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	if err := tbl.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	_, err := fmt.Fprintf(w, "  %d trades | realized PNL %s SOL | invested %s SOL | %d profitable\n",
		summary.Traders, summary.TotalRealizedPNL.StringFixed(2),
		summary.TotalInvested.StringFixed(2), summary.Profitable)
	return err
}

// Prompt prints the connect-wallet prompt raised by a denied action.
func Prompt(w io.Writer, p *table.Prompt) error {
	if p == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "Connect Your Wallet: %q requires a connected wallet (rerun with --connected)\n", p.Action)
	return err
}
