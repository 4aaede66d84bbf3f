// Package ledger keeps an append-only, in-memory log of analysed sessions.
//
// Flow:
//  1. Caller classifies a session and merges the verdict into a record
//  2. Append stamps the record into a new immutable Block
//  3. List/Recent return deep copies for display
//
// Blocks carry a content hash for display only. Hashes are not chained to
// the previous block, so the log is not tamper-evident.
package ledger

import (
	"context"
	"errors"
	"time"
)

var ErrBlockNotFound = errors.New("block not found")

// Record keys read by Append. Everything else in a record is passed through.
const (
	KeySessionID = "sessionId"
	KeyVerdict   = "verdict"
)

// Record is the caller-supplied session summary stored in a block.
type Record map[string]any

// SessionID returns the record's session identifier, or "" when it is
// missing or not a string.
func (r Record) SessionID() string {
	s, _ := r[KeySessionID].(string)
	return s
}

// Verdict returns the record's verdict text, or "" when it is missing or
// not a string.
func (r Record) Verdict() string {
	s, _ := r[KeyVerdict].(string)
	return s
}

// Block is one immutable ledger entry.
type Block struct {
	ID          uint64    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ContentHash string    `json:"contentHash"`
	Verdict     string    `json:"verdict"`
	Payload     Record    `json:"payload"`
}

// Log is the append-only block sequence.
type Log interface {
	Append(ctx context.Context, rec Record) Block
	List(ctx context.Context) []Block
	Recent(ctx context.Context, n int) []Block
	Get(ctx context.Context, id uint64) (Block, error)
	Len() int
}

var _ Log = (*Ledger)(nil)

func (b Block) clone() Block {
	b.Payload = cloneRecord(b.Payload)
	return b
}

func cloneRecord(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies JSON-shaped values. Other types are copied by
// value, so reference types outside this set remain shared.
func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return cloneRecord(t)
	case map[string]any:
		return map[string]any(cloneRecord(Record(t)))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(cloneRecord(Record(item)))
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case []int:
		return append([]int(nil), t...)
	default:
		return v
	}
}
