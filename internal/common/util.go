package common

import (
	"strconv"
	"strings"
)

// WipeByteArray overwrites the contents of b with zeros. Used to drop
// plaintext passwords read from the terminal as soon as they are sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ParseClientRequestID converts the optional client correlation id.
// Anything missing or non-numeric yields DefaultClientRequestID.
func ParseClientRequestID(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultClientRequestID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return DefaultClientRequestID
	}
	return id
}
