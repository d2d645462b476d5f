package model

import (
	"fmt"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewID returns a fresh durable entity ID: a base58-encoded UUID. IDs are
// opaque and compared by value equality.
func NewID() string {
	u := uuid.New()
	return base58.Encode(u[:])
}

// EncodeUUIDBase58 encodes a canonical UUID string to its base58 transport
// form, as used in round-trip CSV group IDs.
func EncodeUUIDBase58(u string) (string, error) {
	parsed, err := uuid.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid uuid %q: %w", u, err)
	}
	return base58.Encode(parsed[:]), nil
}

// DecodeBase58UUID decodes a base58 transport ID back to a canonical UUID
// string. The decoded payload must be exactly 16 bytes.
func DecodeBase58UUID(s string) (string, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid base58 id %q: %w", s, err)
	}
	if len(raw) != 16 {
		return "", fmt.Errorf("invalid base58 id %q: decoded to %d bytes, want 16", s, len(raw))
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
