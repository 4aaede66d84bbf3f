package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// FromMap coerces a decoded JSON object into a SessionRecord. Missing or
// non-numeric fields become 0 and a betHistory that is not a list becomes
// empty. Numeric strings are accepted.
func FromMap(m map[string]any) SessionRecord {
	return SessionRecord{
		GamesPlayed:     toInt(m["gamesPlayed"]),
		Wins:            toInt(m["wins"]),
		Losses:          toInt(m["losses"]),
		TotalLossAmount: toFloat(m["totalLossAmount"]),
		StartBalance:    toFloat(m["startBalance"]),
		BetHistory:      toBets(m["betHistory"]),
	}
}

// DecodeObject decodes data as exactly one JSON object, keeping numbers as
// json.Number. Trailing bytes after the object, including a second value,
// make the whole input invalid.
func DecodeObject(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok && obj != nil
}

func toBets(v any) []Bet {
	switch list := v.(type) {
	case []Bet:
		out := make([]Bet, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]Bet, 0, len(list))
		for _, item := range list {
			out = append(out, toBet(item))
		}
		return out
	case []map[string]any:
		out := make([]Bet, 0, len(list))
		for _, item := range list {
			out = append(out, toBet(item))
		}
		return out
	default:
		return []Bet{}
	}
}

// toBet keeps one history slot per item so the streak window stays aligned
// with the caller's list, even when an item is not an object.
func toBet(v any) Bet {
	switch b := v.(type) {
	case Bet:
		return b
	case map[string]any:
		result, _ := b["result"].(string)
		gameTime, _ := b["gameTime"].(string)
		return Bet{
			Result:    result,
			BetAmount: toFloat(b["betAmount"]),
			Payout:    toFloat(b["payout"]),
			GameTime:  gameTime,
		}
	default:
		return Bet{}
	}
}

func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// toInt truncates toward zero and saturates at the int range.
func toInt(v any) int {
	f := math.Trunc(toFloat(v))
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}
