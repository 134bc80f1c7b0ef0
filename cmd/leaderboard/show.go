package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourorg/trader-leaderboard/internal/aggregate"
	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/render"
	"github.com/yourorg/trader-leaderboard/internal/table"
	"github.com/yourorg/trader-leaderboard/internal/wallet"
)

type showOptions struct {
	timeFrame string
	tab       string
	query     string
	sortKey   string
	direction string
	connected bool
	traderID  string
}

func newShowCmd() *cobra.Command {
	var opts showOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the leaderboard or a trader's trades as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log)
			return show(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.timeFrame, "timeframe", "all-time", "daily, weekly, monthly or all-time")
	f.StringVar(&opts.tab, "tab", "", "tab to show (Traders, Groups; Trades, Tokens with --trader)")
	f.StringVar(&opts.query, "q", "", "search by name or wallet")
	f.StringVar(&opts.sortKey, "sort", "", "column to sort by")
	f.StringVar(&opts.direction, "dir", "asc", "sort direction: asc or desc")
	f.BoolVar(&opts.connected, "connected", true, "act as a connected wallet")
	f.StringVar(&opts.traderID, "trader", "", "show this trader's token trades")
	return cmd
}

// show replays the flags as view actions, so a disconnected run hits the
// same gate as the HTTP API.
func show(ctx context.Context, out io.Writer, cfg *config.Config, opts showOptions) error {
	policy, err := table.ParseGatePolicy(cfg.Views.GatedActions)
	if err != nil {
		return err
	}
	gate := table.NewGate(policy)

	st := newStore(cfg, nil)
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}
	snap := st.Snapshot()

	actions, err := opts.actions()
	if err != nil {
		return err
	}
	caller := wallet.Static(opts.connected)

	if opts.traderID == "" {
		view := table.NewView(table.TraderSchema(), snap.Traders(), gate)
		if err := replay(view, caller, actions); err != nil {
			return err
		}
		rows := view.Rows()
		if err := render.Traders(out, rows, aggregate.Summarize(rows)); err != nil {
			return err
		}
		return render.Prompt(out, view.State().Prompt)
	}

	trader, err := snap.Trader(opts.traderID)
	if err != nil {
		return err
	}
	view := table.NewView(table.TradeSchema(), trader.TokenTrades, gate)
	if err := replay(view, caller, actions); err != nil {
		return err
	}
	rows := view.Rows()
	if err := render.Trades(out, trader, rows, aggregate.SummarizeTrades(rows)); err != nil {
		return err
	}
	return render.Prompt(out, view.State().Prompt)
}

// actions turns flags into the actions a viewer would have taken.
func (o showOptions) actions() ([]table.Action, error) {
	var actions []table.Action

	tf, err := table.ParseTimeFrame(o.timeFrame)
	if err != nil {
		return nil, err
	}
	actions = append(actions, table.TimeFrameAction{TimeFrame: tf})

	if o.tab != "" {
		tab, err := table.ParseTab(o.tab)
		if err != nil {
			return nil, err
		}
		actions = append(actions, table.TabAction{Tab: tab})
	}
	if o.query != "" {
		actions = append(actions, table.SearchAction{Query: o.query})
	}
	if o.sortKey != "" {
		dir, err := table.ParseDirection(o.direction)
		if err != nil {
			return nil, err
		}
		// asc takes one click on the header, desc takes two
		actions = append(actions, table.SortAction{Key: o.sortKey})
		if dir == table.Descending {
			actions = append(actions, table.SortAction{Key: o.sortKey})
		}
	}
	return actions, nil
}

func replay[T table.Record](view *table.View[T], caller table.WalletContext, actions []table.Action) error {
	for _, a := range actions {
		if res := view.Dispatch(caller, a); res.Err != nil {
			return res.Err
		}
	}
	return nil
}

var _ table.WalletContext = wallet.Context{}
