// Package keys holds the small value types shared across the key
// hierarchy: access levels and the wire/on-disk shapes of sealed and
// historical keys.
package keys

import "time"

// AccessLevel is the server-assigned, non-cryptographically-bound
// permission a member holds on a collection.
type AccessLevel int

const (
	AccessLevelReadOnly AccessLevel = iota
	AccessLevelReadWrite
	AccessLevelAdmin
)

func (l AccessLevel) String() string {
	switch l {
	case AccessLevelReadOnly:
		return "ReadOnly"
	case AccessLevelReadWrite:
		return "ReadWrite"
	case AccessLevelAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// KDFParams records the Argon2id tuning a given secret was derived under,
// so Account can detect when it falls below the current minimum and flag
// an upgrade on next successful login.
type KDFParams struct {
	Version     int    `cbor:"version"`
	Memory      uint32 `cbor:"memory"`
	Iterations  uint32 `cbor:"iterations"`
	Parallelism uint8  `cbor:"parallelism"`
}

// EncryptedHistoricalKey is a previous collection key retained (still
// AEAD-sealed) after a rotateKey call, so members who have not yet
// re-synced can still decrypt revisions created under it.
type EncryptedHistoricalKey struct {
	KeyVersion    int       `cbor:"key_version"`
	SealedKey     []byte    `cbor:"sealed_key"`
	RotatedAt     time.Time `cbor:"rotated_at"`
	RotatedReason string    `cbor:"rotated_reason"`
}
