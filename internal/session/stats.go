package session

import (
	"math"
	"strings"

	"github.com/playproofx/playproof/internal/risk"
)

// HistoryEntry is one played game as shown on the stats card.
type HistoryEntry struct {
	Result    string  `json:"result"`
	Amount    float64 `json:"amount,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	AIVerdict string  `json:"aiVerdict,omitempty"`
}

// Stats summarises a game history for the dashboard card.
type Stats struct {
	TotalGames        int     `json:"totalGames"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"winRate"` // percent, 1 decimal
	LossStreak        int     `json:"lossStreak"`
	MostRecentVerdict string  `json:"mostRecentVerdict"`
}

// NoVerdict is shown when no entry carries an AI verdict.
const NoVerdict = "N/A"

// Summarize computes the card stats. Every entry that is not a win counts
// as a loss; LossStreak is the length of the trailing run of losses.
func Summarize(history []HistoryEntry) Stats {
	stats := Stats{
		TotalGames:        len(history),
		MostRecentVerdict: NoVerdict,
	}
	if len(history) == 0 {
		return stats
	}

	for _, h := range history {
		if h.Result == risk.ResultWin {
			stats.Wins++
		}
	}
	stats.Losses = stats.TotalGames - stats.Wins
	stats.WinRate = math.Round(float64(stats.Wins)/float64(stats.TotalGames)*1000) / 10

	for i := len(history) - 1; i >= 0 && history[i].Result == risk.ResultLoss; i-- {
		stats.LossStreak++
	}

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].AIVerdict != "" {
			stats.MostRecentVerdict = history[i].AIVerdict
			break
		}
	}
	return stats
}

// SeverityForText picks a display severity from free-form verdict text by
// keyword, for records whose severity field is missing.
func SeverityForText(text string) risk.Severity {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return risk.SeverityLow
	case containsAny(t, "high", "dangerous", "manipulation"):
		return risk.SeverityHigh
	case containsAny(t, "medium", "unfair", "cautious"):
		return risk.SeverityMedium
	default:
		return risk.SeverityLow
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
