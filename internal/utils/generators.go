package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// NewSessionToken returns 32 bytes of crypto/rand material, base64url
// encoded. Tokens appear verbatim in public self-order URLs and must be
// unguessable.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DayCode formats a day-sequence order code: prefix + yyyymmdd + zero-padded
// sequence, unique per calendar day.
func DayCode(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", prefix, day.Format("20060102"), seq)
}
