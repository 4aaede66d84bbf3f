package ledger

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"
)

// Ledger is the in-memory block sequence. It is safe for concurrent use;
// Append serializes its read-modify-write of the sequence.
type Ledger struct {
	mu      sync.RWMutex
	blocks  []Block
	lastID  uint64
	now     func() time.Time
	entropy io.Reader
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithEntropy overrides the random source mixed into content hashes.
func WithEntropy(r io.Reader) Option {
	return func(l *Ledger) { l.entropy = r }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		blocks:  make([]Block, 0),
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stamps rec into a new block and returns a copy of it. A missing
// session identifier hashes as the empty string; Append never fails.
func (l *Ledger) Append(ctx context.Context, rec Record) Block {
	done := observeOp("append")
	defer done()

	payload := cloneRecord(rec)
	if payload == nil {
		payload = Record{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	l.lastID++
	b := Block{
		ID:          l.lastID,
		Timestamp:   ts,
		ContentHash: contentHash(payload.SessionID(), ts, l.salt()),
		Verdict:     payload.Verdict(),
		Payload:     payload,
	}
	l.blocks = append(l.blocks, b)
	LedgerBlocks.Set(float64(len(l.blocks)))

	return b.clone()
}

// List returns every block, oldest first.
func (l *Ledger) List(ctx context.Context) []Block {
	done := observeOp("list")
	defer done()

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.clone()
	}
	return out
}

// Recent returns up to n blocks, newest first. n <= 0 returns all of them.
func (l *Ledger) Recent(ctx context.Context, n int) []Block {
	done := observeOp("recent")
	defer done()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.blocks) {
		n = len(l.blocks)
	}
	out := make([]Block, 0, n)
	for i := len(l.blocks) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.blocks[i].clone())
	}
	return out
}

// Get returns the block with the given id.
func (l *Ledger) Get(ctx context.Context, id uint64) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// ids are dense and start at 1
	if id == 0 || id > uint64(len(l.blocks)) {
		return Block{}, ErrBlockNotFound
	}
	return l.blocks[id-1].clone(), nil
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Clear empties the ledger and restarts ids at 1. Intended for tests.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = make([]Block, 0)
	l.lastID = 0
	LedgerBlocks.Set(0)
}

// salt reads fresh randomness for a content hash (caller holds lock).
func (l *Ledger) salt() []byte {
	b := make([]byte, saltSize)
	if _, err := io.ReadFull(l.entropy, b); err != nil {
		return fallbackSalt(l.lastID)
	}
	return b
}
