// Package session turns raw user input into session records and summarises
// session history for display. None of this is classification logic; it
// feeds the risk package with plain data and renders what comes back.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/playproofx/playproof/internal/risk"
)

// Form is the raw, all-string input of the analyse form. Blank or
// unparseable numbers become 0.
type Form struct {
	SessionID       string `json:"sessionId" form:"sessionId"`
	GamesPlayed     string `json:"gamesPlayed" form:"gamesPlayed"`
	Wins            string `json:"wins" form:"wins"`
	Losses          string `json:"losses" form:"losses"`
	TotalLossAmount string `json:"totalLossAmount" form:"totalLossAmount"`
	StartBalance    string `json:"startBalance" form:"startBalance"`
	BetHistory      string `json:"betHistory" form:"betHistory"`
}

// Record coerces the form into a session record.
func (f Form) Record() risk.SessionRecord {
	return risk.SessionRecord{
		GamesPlayed:     parseCount(f.GamesPlayed),
		Wins:            parseCount(f.Wins),
		Losses:          parseCount(f.Losses),
		TotalLossAmount: parseAmount(f.TotalLossAmount),
		StartBalance:    parseAmount(f.StartBalance),
		BetHistory:      ParseBetHistory(f.BetHistory),
	}
}

// ParseBetHistory reads either a JSON array of bets or comma shorthand such
// as "w,l,loss,win". Shorthand tokens other than w/win/l/loss are dropped.
// Text that starts with "[" but is not valid JSON is read as shorthand.
func ParseBetHistory(s string) []risk.Bet {
	s = strings.TrimSpace(s)
	if s == "" {
		return []risk.Bet{}
	}
	if strings.HasPrefix(s, "[") {
		if bets, ok := parseJSONBets(s); ok {
			return bets
		}
		s = strings.Trim(s, "[]")
	}
	return parseShorthand(s)
}

func parseJSONBets(s string) ([]risk.Bet, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	bets := make([]risk.Bet, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			bets = append(bets, betFromObject(v))
		case string:
			if bet, ok := shorthandBet(v); ok {
				bets = append(bets, bet)
			}
		}
	}
	return bets, true
}

func betFromObject(m map[string]any) risk.Bet {
	// the classifier's own coercion keeps one slot per object
	rec := risk.FromMap(map[string]any{"betHistory": []any{m}})
	return rec.BetHistory[0]
}

func parseShorthand(s string) []risk.Bet {
	bets := make([]risk.Bet, 0)
	for _, token := range strings.Split(s, ",") {
		if bet, ok := shorthandBet(token); ok {
			bets = append(bets, bet)
		}
	}
	return bets
}

func shorthandBet(token string) (risk.Bet, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(token), `"'`)) {
	case "w", "win":
		return risk.Bet{Result: risk.ResultWin}, true
	case "l", "loss":
		return risk.Bet{Result: risk.ResultLoss}, true
	default:
		return risk.Bet{}, false
	}
}

func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// parseCount saturates at math.MaxInt like the classifier's own coercion.
func parseCount(s string) int {
	f := math.Trunc(parseAmount(s))
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}
