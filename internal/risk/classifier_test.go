package risk

import (
	"encoding/json"
	"testing"
)

func TestClassify_NonRecordInputsReturnSafeDefault(t *testing.T) {
	var nilRecord *SessionRecord
	inputs := map[string]any{
		"nil":              nil,
		"int":              42,
		"float":            3.5,
		"string":           "session",
		"slice":            []any{1, 2, 3},
		"bool":             true,
		"nil pointer":      nilRecord,
		"json array":       []byte(`[1,2,3]`),
		"json null":        json.RawMessage(`null`),
		"invalid json":     []byte(`{not json`),
		"json string":      []byte(`"hello"`),
		"json number":      json.RawMessage(`12`),
		"empty byte buf":   []byte{},
		"trailing garbage": []byte(`{"gamesPlayed":10,"wins":1,"totalLossAmount":400,"startBalance":100} not json`),
		"two objects":      json.RawMessage(`{"gamesPlayed":10,"wins":1}{"x":1}`),
		"object then null": []byte(`{"gamesPlayed":10,"wins":1} null`),
	}

	want := SafeDefault()
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := Classify(in); got != want {
				t.Errorf("Classify(%v) = %+v, want %+v", in, got, want)
			}
		})
	}
}

func TestClassify_NoGamesPlayed(t *testing.T) {
	got := Classify(SessionRecord{StartBalance: 100})
	if got.WinRate != 0 {
		t.Errorf("expected win rate 0, got %v", got.WinRate)
	}
	if got.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", got.Severity)
	}
	if got.Verdict != TextFair {
		t.Errorf("expected fair verdict, got %q", got.Verdict)
	}
	if got.LossStreak {
		t.Error("expected no loss streak")
	}
}

func TestClassify_DecisionTable(t *testing.T) {
	tests := []struct {
		name        string
		session     SessionRecord
		wantRate    float64
		wantText    string
		wantSev     Severity
		wantStreak  bool
		checkWinRat bool
	}{
		{
			name:        "unfair win rate",
			session:     SessionRecord{GamesPlayed: 10, Wins: 2, Losses: 8, TotalLossAmount: 20, StartBalance: 100},
			wantRate:    20,
			wantText:    TextUnfairWinRate,
			wantSev:     SeverityMedium,
			checkWinRat: true,
		},
		{
			name:        "dangerous loss with healthy win rate",
			session:     SessionRecord{GamesPlayed: 5, Wins: 3, Losses: 2, TotalLossAmount: 400, StartBalance: 100},
			wantRate:    60,
			wantText:    TextDangerousLoss,
			wantSev:     SeverityHigh,
			checkWinRat: true,
		},
		{
			name:     "dangerous loss and unfair win rate",
			session:  SessionRecord{GamesPlayed: 10, Wins: 1, Losses: 9, TotalLossAmount: 400, StartBalance: 100},
			wantText: TextManipulationRisk,
			wantSev:  SeverityHigh,
		},
		{
			name:     "zero start balance never triggers dangerous loss",
			session:  SessionRecord{GamesPlayed: 10, Wins: 2, Losses: 8, TotalLossAmount: 1000, StartBalance: 0},
			wantText: TextUnfairWinRate,
			wantSev:  SeverityMedium,
		},
		{
			name:     "negative start balance never triggers dangerous loss",
			session:  SessionRecord{GamesPlayed: 3, Wins: 2, TotalLossAmount: 1000, StartBalance: -50},
			wantText: TextFair,
			wantSev:  SeverityLow,
		},
		{
			name: "loss streak only",
			session: SessionRecord{
				GamesPlayed: 5, Wins: 2, Losses: 3, TotalLossAmount: 50, StartBalance: 100,
				BetHistory: []Bet{{Result: "win"}, {Result: "loss"}, {Result: "loss"}, {Result: "loss"}},
			},
			wantText:   TextLossStreak,
			wantSev:    SeverityMedium,
			wantStreak: true,
		},
		{
			name: "loss streak loses to unfair win rate",
			session: SessionRecord{
				GamesPlayed: 10, Wins: 1, TotalLossAmount: 10, StartBalance: 100,
				BetHistory: []Bet{{Result: "loss"}, {Result: "loss"}, {Result: "loss"}},
			},
			wantText:   TextUnfairWinRate,
			wantSev:    SeverityMedium,
			wantStreak: true,
		},
		{
			name:        "healthy session",
			session:     SessionRecord{GamesPlayed: 10, Wins: 5, Losses: 5, TotalLossAmount: 50, StartBalance: 100},
			wantRate:    50,
			wantText:    TextFair,
			wantSev:     SeverityLow,
			checkWinRat: true,
		},
		{
			name:     "exactly three times start balance is not dangerous",
			session:  SessionRecord{GamesPlayed: 4, Wins: 2, TotalLossAmount: 300, StartBalance: 100},
			wantText: TextFair,
			wantSev:  SeverityLow,
		},
		{
			name:        "exactly thirty percent is not unfair",
			session:     SessionRecord{GamesPlayed: 10, Wins: 3, StartBalance: 100},
			wantRate:    30,
			wantText:    TextFair,
			wantSev:     SeverityLow,
			checkWinRat: true,
		},
		{
			name:     "nine games never trigger unfair win rate",
			session:  SessionRecord{GamesPlayed: 9, Wins: 0, StartBalance: 100},
			wantText: TextFair,
			wantSev:  SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.session)
			if got.Verdict != tt.wantText {
				t.Errorf("verdict = %q, want %q", got.Verdict, tt.wantText)
			}
			if got.Severity != tt.wantSev {
				t.Errorf("severity = %s, want %s", got.Severity, tt.wantSev)
			}
			if got.LossStreak != tt.wantStreak {
				t.Errorf("lossStreak = %v, want %v", got.LossStreak, tt.wantStreak)
			}
			if tt.checkWinRat && got.WinRate != tt.wantRate {
				t.Errorf("winRate = %v, want %v", got.WinRate, tt.wantRate)
			}
		})
	}
}

func TestClassify_PointerAndValueAgree(t *testing.T) {
	s := SessionRecord{GamesPlayed: 12, Wins: 2, Losses: 10, TotalLossAmount: 300, StartBalance: 50}
	if Classify(s) != Classify(&s) {
		t.Error("pointer and value inputs should classify identically")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	s := SessionRecord{
		GamesPlayed: 7, Wins: 1, TotalLossAmount: 80, StartBalance: 20,
		BetHistory: []Bet{{Result: "loss"}, {Result: "loss"}, {Result: "loss"}},
	}
	first := Classify(s)
	second := Classify(s)
	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestWinRate_RoundsToTwoDecimals(t *testing.T) {
	tests := []struct {
		games, wins int
		want        float64
	}{
		{3, 1, 33.33},
		{3, 2, 66.67},
		{7, 1, 14.29},
		{0, 5, 0},
		{-4, 2, 0},
		{8, 8, 100},
	}
	for _, tt := range tests {
		if got := WinRate(tt.games, tt.wins); got != tt.want {
			t.Errorf("WinRate(%d, %d) = %v, want %v", tt.games, tt.wins, got, tt.want)
		}
	}
}

func TestHasLossStreak(t *testing.T) {
	loss := Bet{Result: ResultLoss}
	win := Bet{Result: ResultWin}
	other := Bet{Result: "push"}

	tests := []struct {
		name    string
		history []Bet
		want    bool
	}{
		{"empty", nil, false},
		{"two losses", []Bet{loss, loss}, false},
		{"three losses", []Bet{loss, loss, loss}, true},
		{"win breaks tail", []Bet{loss, loss, loss, win}, false},
		{"streak after win", []Bet{win, loss, loss, loss}, true},
		{"unrecognised result", []Bet{loss, other, loss}, false},
		{"upper case does not match", []Bet{loss, loss, {Result: "LOSS"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLossStreak(tt.history); got != tt.want {
				t.Errorf("HasLossStreak = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRules_OrderAndSeverity(t *testing.T) {
	rs := Rules()
	wantNames := []string{"manipulation_and_financial_risk", "dangerous_loss", "unfair_win_rate", "loss_streak", "fair"}
	if len(rs) != len(wantNames) {
		t.Fatalf("expected %d rules, got %d", len(wantNames), len(rs))
	}
	for i, r := range rs {
		if r.Name != wantNames[i] {
			t.Errorf("rule %d = %s, want %s", i, r.Name, wantNames[i])
		}
	}

	// Severity is a function of the signals alone: enumerate all eight.
	for _, d := range []bool{false, true} {
		for _, u := range []bool{false, true} {
			for _, l := range []bool{false, true} {
				got := match(Signals{DangerousLoss: d, UnfairWinRate: u, LossStreak: l})
				var want Severity
				switch {
				case d:
					want = SeverityHigh
				case u || l:
					want = SeverityMedium
				default:
					want = SeverityLow
				}
				if got.Severity != want {
					t.Errorf("signals d=%v u=%v l=%v: severity %s, want %s", d, u, l, got.Severity, want)
				}
			}
		}
	}

	// Mutating the returned copy must not change evaluation.
	rs[0].Severity = SeverityLow
	if Rules()[0].Severity != SeverityHigh {
		t.Error("Rules() should return a copy")
	}
}

func TestParseSeverity(t *testing.T) {
	for _, in := range []string{"low", "MEDIUM", " High "} {
		if _, ok := ParseSeverity(in); !ok {
			t.Errorf("ParseSeverity(%q) should succeed", in)
		}
	}
	if _, ok := ParseSeverity("critical"); ok {
		t.Error("ParseSeverity(critical) should fail")
	}
	if !(SeverityLow.Rank() < SeverityMedium.Rank() && SeverityMedium.Rank() < SeverityHigh.Rank()) {
		t.Error("severity ranks out of order")
	}
}
