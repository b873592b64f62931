package orders

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const codePrefix = "ORD"

// NewCode generates the externally visible order reference: ORD + UTC
// second stamp + 4 random bytes. The timestamp keeps codes roughly sortable
// and the random suffix covers concurrent checkouts within one second; the
// unique index on orders.code is still the final arbiter (ErrConflict).
func NewCode(now time.Time) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return codePrefix + now.UTC().Format("20060102150405") + strings.ToUpper(hex.EncodeToString(b[:]))
}
