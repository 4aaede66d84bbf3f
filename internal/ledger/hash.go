package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

const saltSize = 8

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// ValidHash reports whether s looks like a block content hash.
func ValidHash(s string) bool {
	return hashPattern.MatchString(s)
}

// contentHash digests "<sessionID>-<unix millis>-<salt hex>" with Keccak-256
// and renders it as 0x-prefixed lowercase hex.
func contentHash(sessionID string, ts time.Time, salt []byte) string {
	preimage := sessionID + "-" + strconv.FormatInt(ts.UnixMilli(), 10) + "-" + hex.EncodeToString(salt)
	return crypto.Keccak256Hash([]byte(preimage)).Hex()
}

// fallbackSalt is used only when the entropy source fails.
func fallbackSalt(seq uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], seq)
	return b
}
