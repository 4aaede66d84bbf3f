package risk

import (
	"encoding/json"
	"math"
)

// Signals are the boolean inputs to the rule table.
type Signals struct {
	DangerousLoss bool
	UnfairWinRate bool
	LossStreak    bool
}

// Rule maps a combination of signals to a verdict. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Name     string
	Verdict  string
	Severity Severity
	Match    func(Signals) bool
}

var rules = []Rule{
	{
		Name:     "manipulation_and_financial_risk",
		Verdict:  TextManipulationRisk,
		Severity: SeverityHigh,
		Match:    func(s Signals) bool { return s.DangerousLoss && s.UnfairWinRate },
	},
	{
		Name:     "dangerous_loss",
		Verdict:  TextDangerousLoss,
		Severity: SeverityHigh,
		Match:    func(s Signals) bool { return s.DangerousLoss },
	},
	{
		Name:     "unfair_win_rate",
		Verdict:  TextUnfairWinRate,
		Severity: SeverityMedium,
		Match:    func(s Signals) bool { return s.UnfairWinRate },
	},
	{
		Name:     "loss_streak",
		Verdict:  TextLossStreak,
		Severity: SeverityMedium,
		Match:    func(s Signals) bool { return s.LossStreak },
	},
	{
		Name:     "fair",
		Verdict:  TextFair,
		Severity: SeverityLow,
		Match:    func(Signals) bool { return true },
	},
}

// Rules returns the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify evaluates any caller-supplied value. SessionRecord values and
// pointers are evaluated directly, decoded JSON objects (map[string]any, or
// raw JSON bytes holding an object) are coerced with FromMap, and anything
// else yields SafeDefault.
func Classify(input any) Verdict {
	switch v := input.(type) {
	case SessionRecord:
		return Evaluate(v)
	case *SessionRecord:
		if v == nil {
			return SafeDefault()
		}
		return Evaluate(*v)
	case map[string]any:
		if v == nil {
			return SafeDefault()
		}
		return Evaluate(FromMap(v))
	case json.RawMessage:
		return classifyJSON(v)
	case []byte:
		return classifyJSON(v)
	default:
		return SafeDefault()
	}
}

func classifyJSON(data []byte) Verdict {
	obj, ok := DecodeObject(data)
	if !ok {
		return SafeDefault()
	}
	return Evaluate(FromMap(obj))
}

// Evaluate runs the rule table against a session record.
func Evaluate(s SessionRecord) Verdict {
	winRate := WinRate(s.GamesPlayed, s.Wins)
	sig := Signals{
		LossStreak:    HasLossStreak(s.BetHistory),
		UnfairWinRate: s.GamesPlayed >= MinGamesForWinRate && winRate < UnfairWinRateThreshold,
		DangerousLoss: s.StartBalance > 0 && s.TotalLossAmount > DangerousLossMultiplier*s.StartBalance,
	}

	r := match(sig)
	return Verdict{
		WinRate:    winRate,
		LossStreak: sig.LossStreak,
		Verdict:    r.Verdict,
		Severity:   r.Severity,
	}
}

func match(sig Signals) Rule {
	for _, r := range rules {
		if r.Match(sig) {
			return r
		}
	}
	// unreachable: the last rule always matches
	return rules[len(rules)-1]
}

// WinRate returns wins as a percentage of games, rounded to 2 decimals.
// No games played means a win rate of 0.
func WinRate(gamesPlayed, wins int) float64 {
	if gamesPlayed <= 0 {
		return 0
	}
	return round2(float64(wins) / float64(gamesPlayed) * 100)
}

// HasLossStreak reports whether the last LossStreakLength bets are all losses.
func HasLossStreak(history []Bet) bool {
	if len(history) < LossStreakLength {
		return false
	}
	for _, b := range history[len(history)-LossStreakLength:] {
		if b.Result != ResultLoss {
			return false
		}
	}
	return true
}

func round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}
