package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

const (
	hashField     = "vnp_SecureHash"
	hashTypeField = "vnp_SecureHashType"
)

// Canonicalize renders a parameter set as the exact byte sequence the
// signature covers: keys sorted lexicographically, joined as key=value&...
// with raw (unescaped) values. Empty values are skipped, matching the
// gateway's signing rules.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign computes the hex HMAC-SHA512 of the canonical form. Signature
// fields, if present, are excluded from the input.
func Sign(params map[string]string, secret string) string {
	in := make(map[string]string, len(params))
	for k, v := range params {
		if k == hashField || k == hashTypeField {
			continue
		}
		in[k] = v
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(Canonicalize(in)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over everything except the hash
// fields and compares in constant time. This is the sole integrity gate for
// inbound callbacks.
func VerifySignature(params map[string]string, secret string) bool {
	got := params[hashField]
	if got == "" {
		return false
	}
	want := Sign(params, secret)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}
