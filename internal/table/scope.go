package table

import (
	"fmt"
	"strings"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// TimeFrame limits rows to recent activity.
type TimeFrame string

// Time frames offered by the dashboard.
const (
	Daily   TimeFrame = "Daily"
	Weekly  TimeFrame = "Weekly"
	Monthly TimeFrame = "Monthly"
	AllTime TimeFrame = "All-Time"
)

// TimeFrames lists the frames in display order.
var TimeFrames = []TimeFrame{Daily, Weekly, Monthly, AllTime}

// ParseTimeFrame reads a time frame case-insensitively. The empty string is
// All-Time.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d":
		return Daily, nil
	case "weekly", "week", "7d":
		return Weekly, nil
	case "monthly", "month", "30d":
		return Monthly, nil
	case "", "all-time", "alltime", "all", "all_time":
		return AllTime, nil
	}
	return "", fmt.Errorf("unknown time frame %q", s)
}

// Window returns the frame length in minutes. ok is false for All-Time.
func (tf TimeFrame) Window() (minutes int64, ok bool) {
	switch tf {
	case Daily:
		return 24 * 60, true
	case Weekly:
		return 7 * 24 * 60, true
	case Monthly:
		return 30 * 24 * 60, true
	}
	return 0, false
}

// Contains reports whether activity m minutes ago falls inside the frame.
// Unknown activity only belongs to All-Time.
func (tf TimeFrame) Contains(m model.Minutes) bool {
	window, bounded := tf.Window()
	if !bounded {
		return true
	}
	return m.Valid && m.Value <= window
}

// Tab selects which record subset a view shows.
type Tab string

// Tabs of the leaderboard and of a trader profile.
const (
	TabTraders Tab = "Traders"
	TabGroups  Tab = "Groups"
	TabTrades  Tab = "Trades"
	TabTokens  Tab = "Tokens"
)

// ParseTab reads a tab name case-insensitively.
func ParseTab(s string) (Tab, error) {
	for _, t := range []Tab{TabTraders, TabGroups, TabTrades, TabTokens} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}
