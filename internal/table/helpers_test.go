package table

import (
	"github.com/yourorg/trader-leaderboard/internal/model"
)

func trader(id, rank int, name, wallet string) model.Trader {
	return model.Trader{ID: model.IntID(id), Rank: rank, Name: name, Wallet: wallet}
}

func ranks(traders []model.Trader) []int {
	out := make([]int, 0, len(traders))
	for _, t := range traders {
		out = append(out, t.Rank)
	}
	return out
}

func names(traders []model.Trader) []string {
	out := make([]string, 0, len(traders))
	for _, t := range traders {
		out = append(out, t.Name)
	}
	return out
}
