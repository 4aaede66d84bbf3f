// Package verdict ties the classifier to the ledger: it classifies sessions,
// logs them as blocks and tells realtime subscribers about both.
package verdict

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/playproofx/playproof/internal/idgen"
	"github.com/playproofx/playproof/internal/ledger"
	"github.com/playproofx/playproof/internal/logging"
	"github.com/playproofx/playproof/internal/metrics"
	"github.com/playproofx/playproof/internal/realtime"
	"github.com/playproofx/playproof/internal/risk"
	"github.com/playproofx/playproof/internal/traces"
)

// SessionIDPrefix prefixes generated session identifiers.
const SessionIDPrefix = "sess_"

// Publisher receives realtime events. *realtime.Hub satisfies it.
type Publisher interface {
	Publish(eventType realtime.EventType, data map[string]any)
}

// Submission is a session to classify and log. Session accepts anything
// risk.Classify accepts; SessionID overrides any id carried in Session.
type Submission struct {
	SessionID string
	Session   any
}

// Service implements analyse-and-log on top of a ledger.
type Service struct {
	ledger    ledger.Log
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a verdict service. publisher may be nil.
func NewService(l ledger.Log, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{ledger: l, publisher: publisher, logger: logger}
}

// Analyze classifies input without logging it. The published event carries
// the input's own sessionId, if it has one.
func (s *Service) Analyze(ctx context.Context, input any) risk.Verdict {
	return s.AnalyzeSession(ctx, "", input)
}

// AnalyzeSession is Analyze for input whose session id travels separately,
// such as a coerced form. A blank sessionID falls back to the input's own.
func (s *Service) AnalyzeSession(ctx context.Context, sessionID string, input any) risk.Verdict {
	_, span := traces.StartSpan(ctx, "verdict.analyze")
	defer span.End()

	v := risk.Classify(input)
	span.SetAttributes(traces.Severity(string(v.Severity)), traces.WinRate(v.WinRate))
	metrics.ClassificationsTotal.WithLabelValues(string(v.Severity)).Inc()

	data := map[string]any{
		"verdict":    v.Verdict,
		"severity":   string(v.Severity),
		"winRate":    v.WinRate,
		"lossStreak": v.LossStreak,
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(sessionIDOf(input))
	}
	if sessionID != "" {
		data["sessionId"] = sessionID
		span.SetAttributes(traces.SessionID(sessionID))
	}
	s.publish(realtime.EventSessionAnalyzed, data)
	return v
}

// Submit classifies the session and appends it, merged with its verdict,
// to the ledger.
func (s *Service) Submit(ctx context.Context, sub Submission) (risk.Verdict, ledger.Block) {
	ctx, span := traces.StartSpan(ctx, "verdict.submit")
	defer span.End()

	v := risk.Classify(sub.Session)
	metrics.ClassificationsTotal.WithLabelValues(string(v.Severity)).Inc()

	rec := payloadOf(sub.Session)
	sessionID := strings.TrimSpace(sub.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(rec.SessionID())
	}
	if sessionID == "" {
		sessionID = idgen.WithPrefix(SessionIDPrefix)
	}
	rec[ledger.KeySessionID] = sessionID
	rec[ledger.KeyVerdict] = v.Verdict
	rec["severity"] = string(v.Severity)
	rec["winRate"] = v.WinRate
	rec["lossStreak"] = v.LossStreak

	block := s.ledger.Append(ctx, rec)

	span.SetAttributes(
		traces.SessionID(sessionID),
		traces.Severity(string(v.Severity)),
		traces.BlockID(block.ID),
		attribute.String("ledger.content_hash", block.ContentHash),
	)
	logging.LOr(ctx, s.logger).Info("session logged",
		"sessionId", sessionID,
		"block", block.ID,
		"severity", v.Severity,
	)

	s.publish(realtime.EventBlockAppended, map[string]any{
		"sessionId":   sessionID,
		"severity":    string(v.Severity),
		"verdict":     v.Verdict,
		"blockId":     block.ID,
		"timestamp":   block.Timestamp,
		"contentHash": block.ContentHash,
	})
	return v, block
}

// Blocks returns up to limit blocks. limit <= 0 means all of them.
func (s *Service) Blocks(ctx context.Context, newestFirst bool, limit int) []ledger.Block {
	if newestFirst {
		return s.ledger.Recent(ctx, limit)
	}
	blocks := s.ledger.List(ctx)
	if limit > 0 && limit < len(blocks) {
		blocks = blocks[:limit]
	}
	return blocks
}

// Block returns a single block by id.
func (s *Service) Block(ctx context.Context, id uint64) (ledger.Block, error) {
	return s.ledger.Get(ctx, id)
}

// Len reports how many blocks the ledger holds.
func (s *Service) Len() int {
	return s.ledger.Len()
}

func (s *Service) publish(eventType realtime.EventType, data map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(eventType, data)
}

// payloadOf turns session input into a fresh ledger record. Non-object
// input yields an empty record.
func payloadOf(input any) ledger.Record {
	rec := ledger.Record{}
	switch v := input.(type) {
	case map[string]any:
		for k, val := range v {
			rec[k] = val
		}
		return rec
	case json.RawMessage:
		return decodeRecord(v)
	case []byte:
		return decodeRecord(v)
	case risk.SessionRecord, *risk.SessionRecord:
		if p, ok := v.(*risk.SessionRecord); ok && p == nil {
			return rec
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return rec
		}
		return decodeRecord(raw)
	default:
		return rec
	}
}

func decodeRecord(raw []byte) ledger.Record {
	m, ok := risk.DecodeObject(raw)
	if !ok {
		return ledger.Record{}
	}
	return ledger.Record(m)
}

// sessionIDOf reads the sessionId of object-shaped input.
func sessionIDOf(input any) string {
	switch v := input.(type) {
	case map[string]any:
		return ledger.Record(v).SessionID()
	case json.RawMessage:
		return decodeRecord(v).SessionID()
	case []byte:
		return decodeRecord(v).SessionID()
	default:
		return ""
	}
}
