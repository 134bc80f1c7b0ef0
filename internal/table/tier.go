package table

// Tier is the visual class of a rank.
type Tier string

// Rank tiers. Only the podium is highlighted.
const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
	TierNone   Tier = "none"
)

// TierFor maps a rank to its tier.
func TierFor(rank int) Tier {
	switch rank {
	case 1:
		return TierGold
	case 2:
		return TierSilver
	case 3:
		return TierBronze
	}
	return TierNone
}

// Icon is a one-character marker for terminal output.
func (t Tier) Icon() string {
	switch t {
	case TierGold:
		return "G"
	case TierSilver:
		return "S"
	case TierBronze:
		return "B"
	}
	return " "
}
