package envelope

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// newClientUID returns a random base62 identifier for entities the client
// must be able to reference before the server assigns one (items, and
// invitations prior to being posted). Collections are left with an empty
// UID by Create since the collection uid is server-assigned.
func newClientUID(n int) (string, error) {
	out := make([]byte, n)
	base := big.NewInt(int64(len(base62Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("envelope: generate uid: %w", err)
		}
		out[i] = base62Alphabet[idx.Int64()]
	}
	return string(out), nil
}
