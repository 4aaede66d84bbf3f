// Package risk classifies gambling sessions as fair, suspicious, or dangerous.
//
// Every session is evaluated against three signals: an unfair win rate over
// enough games, losses exceeding a multiple of the starting balance, and a
// trailing streak of losses. The signals feed a precedence-ordered rule table
// whose first match decides the verdict text and severity. Classification is
// a pure function and never fails; malformed input degrades to SafeDefault.
package risk

import "strings"

// Severity is the ordinal risk tier attached to a verdict.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities: low=1, medium=2, high=3. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// ParseSeverity accepts "low", "medium" or "high" in any case.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return "", false
	}
	return sev, true
}

// Bet results that the classifier recognises. Any other string is kept on
// the bet but never counts as a win or a loss.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// Thresholds for the classification rules.
const (
	MinGamesForWinRate      = 10
	UnfairWinRateThreshold  = 30.0 // percent
	DangerousLossMultiplier = 3.0
	LossStreakLength        = 3
)

// Verdict texts, one per rule.
const (
	TextManipulationRisk = "Session shows signs of possible manipulation and financial risk"
	TextDangerousLoss    = "Session indicates dangerous gambling behavior"
	TextUnfairWinRate    = "Session seems possibly unfair (very low win rate)"
	TextLossStreak       = "Loss streak detected – be cautious"
	TextFair             = "Session appears fair"
)

// Bet is a single round in a session's history.
type Bet struct {
	Result    string  `json:"result"`
	BetAmount float64 `json:"betAmount,omitempty"`
	Payout    float64 `json:"payout,omitempty"`
	GameTime  string  `json:"gameTime,omitempty"`
}

// SessionRecord carries the aggregate stats of one gambling session.
// Wins and Losses are not required to sum to GamesPlayed.
type SessionRecord struct {
	GamesPlayed     int     `json:"gamesPlayed"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	TotalLossAmount float64 `json:"totalLossAmount"`
	StartBalance    float64 `json:"startBalance"`
	BetHistory      []Bet   `json:"betHistory"` // chronological
}

// Verdict is the classifier's judgment on a session.
type Verdict struct {
	WinRate    float64  `json:"winRate"`
	LossStreak bool     `json:"lossStreak"`
	Verdict    string   `json:"verdict"`
	Severity   Severity `json:"severity"`
}

// SafeDefault is returned for input that is not a session record.
func SafeDefault() Verdict {
	return Verdict{
		WinRate:    0,
		LossStreak: false,
		Verdict:    TextFair,
		Severity:   SeverityLow,
	}
}
