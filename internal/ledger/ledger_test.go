package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestAppend_CreatesBlock(t *testing.T) {
	l := New()
	ctx := context.Background()

	rec := Record{
		"sessionId":   "test-123",
		"verdict":     "High Risk",
		"gamesPlayed": 5,
	}
	b := l.Append(ctx, rec)

	assert.Equal(t, uint64(1), b.ID)
	assert.True(t, ValidHash(b.ContentHash), "hash %q", b.ContentHash)
	assert.Equal(t, "High Risk", b.Verdict)
	assert.Equal(t, rec, b.Payload)
	assert.False(t, b.Timestamp.IsZero())
	assert.Equal(t, time.UTC, b.Timestamp.Location())

	chain := l.List(ctx)
	require.Len(t, chain, 1)
	assert.Equal(t, b, chain[0])
}

func TestAppend_PreservesOrder(t *testing.T) {
	l := New()
	ctx := context.Background()

	const n = 25
	for i := 0; i < n; i++ {
		l.Append(ctx, Record{KeySessionID: fmt.Sprintf("s%d", i), KeyVerdict: "Session appears fair"})
	}

	chain := l.List(ctx)
	require.Len(t, chain, n)
	for i, b := range chain {
		assert.Equal(t, uint64(i+1), b.ID)
		assert.Equal(t, fmt.Sprintf("s%d", i), b.Payload.SessionID())
		assert.True(t, ValidHash(b.ContentHash))
	}
}

func TestAppend_SameSessionSameInstantDiffers(t *testing.T) {
	l := New(WithClock(fixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	a := l.Append(ctx, Record{KeySessionID: "dup"})
	b := l.Append(ctx, Record{KeySessionID: "dup"})

	assert.Equal(t, a.Timestamp, b.Timestamp)
	assert.NotEqual(t, a.ContentHash, b.ContentHash)
}

func TestAppend_MissingFieldsStillHash(t *testing.T) {
	l := New()
	ctx := context.Background()

	b := l.Append(ctx, nil)
	assert.True(t, ValidHash(b.ContentHash))
	assert.Equal(t, "", b.Verdict)
	assert.NotNil(t, b.Payload)

	c := l.Append(ctx, Record{KeySessionID: 42, KeyVerdict: []string{"x"}})
	assert.True(t, ValidHash(c.ContentHash))
	assert.Equal(t, "", c.Verdict)
	assert.Equal(t, 42, c.Payload[KeySessionID])
}

func TestContentHash_Deterministic(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	h1 := contentHash("abc", ts, salt)
	h2 := contentHash("abc", ts, salt)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, contentHash("abd", ts, salt))
	assert.NotEqual(t, h1, contentHash("abc", ts.Add(time.Millisecond), salt))
	assert.Len(t, h1, 66)
}

func TestAppend_EntropyFailureFallsBack(t *testing.T) {
	l := New(
		WithEntropy(bytes.NewReader(nil)),
		WithClock(fixedClock(time.Unix(0, 0))),
	)
	ctx := context.Background()

	a := l.Append(ctx, Record{KeySessionID: "x"})
	b := l.Append(ctx, Record{KeySessionID: "x"})
	assert.True(t, ValidHash(a.ContentHash))
	assert.NotEqual(t, a.ContentHash, b.ContentHash)
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash("0x"+string(bytes.Repeat([]byte("a"), 64))))
	assert.False(t, ValidHash("0x"+string(bytes.Repeat([]byte("a"), 63))))
	assert.False(t, ValidHash(string(bytes.Repeat([]byte("a"), 66))))
	assert.False(t, ValidHash("0x"+string(bytes.Repeat([]byte("g"), 64))))
	assert.False(t, ValidHash("0X"+string(bytes.Repeat([]byte("a"), 64))))
}

func TestList_ReturnsSnapshot(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.Append(ctx, Record{
		KeySessionID: "a",
		KeyVerdict:   "Low",
		"betHistory":  []any{map[string]any{"result": "win"}},
	})

	first := l.List(ctx)
	first[0].Verdict = "tampered"
	first[0].Payload[KeySessionID] = "tampered"
	first[0].Payload["betHistory"].([]any)[0].(map[string]any)["result"] = "loss"

	second := l.List(ctx)
	require.Len(t, second, 1)
	assert.Equal(t, "Low", second[0].Verdict)
	assert.Equal(t, "a", second[0].Payload.SessionID())
	assert.Equal(t, "win", second[0].Payload["betHistory"].([]any)[0].(map[string]any)["result"])
}

func TestAppend_CallerMutationDoesNotLeak(t *testing.T) {
	l := New()
	ctx := context.Background()

	rec := Record{KeySessionID: "a", "tags": []string{"x"}}
	returned := l.Append(ctx, rec)

	rec[KeySessionID] = "changed"
	rec["tags"].([]string)[0] = "changed"
	returned.Payload[KeySessionID] = "changed"

	stored, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Payload.SessionID())
	assert.Equal(t, []string{"x"}, stored.Payload["tags"])
}

func TestRecent(t *testing.T) {
	l := New()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		l.Append(ctx, Record{KeySessionID: fmt.Sprintf("s%d", i)})
	}

	top := l.Recent(ctx, 2)
	require.Len(t, top, 2)
	assert.Equal(t, uint64(5), top[0].ID)
	assert.Equal(t, uint64(4), top[1].ID)

	assert.Len(t, l.Recent(ctx, 0), 5)
	assert.Len(t, l.Recent(ctx, 100), 5)
	assert.Empty(t, New().Recent(ctx, 3))
}

func TestGet(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Append(ctx, Record{KeySessionID: "only"})

	b, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "only", b.Payload.SessionID())

	_, err = l.Get(ctx, 0)
	assert.True(t, errors.Is(err, ErrBlockNotFound))
	_, err = l.Get(ctx, 2)
	assert.True(t, errors.Is(err, ErrBlockNotFound))
}

func TestClear_ResetsSequence(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Append(ctx, Record{KeySessionID: "a"})
	l.Append(ctx, Record{KeySessionID: "b"})

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.List(ctx))

	b := l.Append(ctx, Record{KeySessionID: "c"})
	assert.Equal(t, uint64(1), b.ID)
}

func TestAppend_ConcurrentWritersGetUniqueIDs(t *testing.T) {
	l := New()
	ctx := context.Background()

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.Append(ctx, Record{KeySessionID: fmt.Sprintf("w%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	chain := l.List(ctx)
	require.Len(t, chain, writers*perWriter)
	seen := make(map[string]bool, len(chain))
	for i, b := range chain {
		assert.Equal(t, uint64(i+1), b.ID)
		assert.False(t, seen[b.ContentHash], "duplicate hash %s", b.ContentHash)
		seen[b.ContentHash] = true
	}
}
