// Package cryptoutil implements the CryptoPrimitives layer: key derivation,
// AEAD, keyed MAC / subkey derivation, and the signed asymmetric box used
// for invitations. Every other package builds on these functions instead of
// touching golang.org/x/crypto or crypto/ecdh directly.
package cryptoutil

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sizes of the primitives in play throughout the module. Managers and
// envelopes validate against these rather than hardcoding magic numbers.
const (
	KeySize       = 32 // symmetric key / shared secret size
	NonceSize     = chacha20poly1305.NonceSize
	MACSize       = 32
	SaltSize      = 16
	X25519KeySize = 32
	Ed25519SigSize = ed25519.SignatureSize
)

// KDFParams carries the Argon2id tuning used to derive a main key from a
// password. Recorded on Account so a client can detect when a stored
// encryptedContent blob was sealed under weaker-than-current parameters.
type KDFParams struct {
	Version     int
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams mirrors the "interactive" Argon2id profile: strong enough
// for an account root secret, light enough for a login round trip.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Version:     1,
		Memory:      64 * 1024, // 64 MiB
		Iterations:  3,
		Parallelism: 4,
	}
}

// MeetsMinimum reports whether p is at least as strong as the floor the
// current scheme version requires. Account uses this to flag a stored blob
// for a changePassword-triggered re-derivation.
func (p KDFParams) MeetsMinimum() bool {
	min := DefaultKDFParams()
	return p.Memory >= min.Memory && p.Iterations >= min.Iterations && p.Parallelism >= min.Parallelism
}

// GenerateSalt returns SaltSize cryptographically random bytes.
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// GenerateKey returns KeySize cryptographically random bytes, suitable as an
// accountKey, collectionKey, or item key.
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("cryptoutil: generate random bytes: %w", err)
	}
	return buf, nil
}

// DeriveMainKey derives the 32-byte main key from a password and salt using
// Argon2id under the given parameters. Deterministic: same inputs, same
// output, satisfying the Testable Properties invariant that key derivation
// is reproducible.
func DeriveMainKey(password string, salt []byte, params KDFParams) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("cryptoutil: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, KeySize), nil
}

// Seal encrypts plaintext under key with ChaCha20-Poly1305-IETF, binding the
// given associated data (typically a domain tag), under a fresh random
// nonce. Returns nonce‖ciphertext.
func Seal(key, plaintext, ad []byte) ([]byte, error) {
	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, err
	}
	return SealWithNonce(key, nonce, plaintext, ad)
}

// SealWithNonce is Seal with a caller-supplied nonce. Used where the chunk
// layer needs deterministic ciphertext for identical plaintext (so
// re-chunking unchanged content reproduces the same chunkUid) — callers
// there derive the nonce from MAC(key, plaintext) rather than randomBytes.
// Callers that don't need determinism should use Seal.
func SealWithNonce(key, nonce, plaintext, ad []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptoutil: key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("cryptoutil: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new aead: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, ad)
	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open decrypts a nonce‖ciphertext blob produced by Seal, checking ad.
// Any failure — wrong key, tampered ciphertext, mismatched ad — returns a
// plain error; callers wrap it as apperr.Integrity.
func Open(key, sealed, ad []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptoutil: key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(sealed) < NonceSize {
		return nil, fmt.Errorf("cryptoutil: sealed value too short")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new aead: %w", err)
	}
	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: open: %w", err)
	}
	return plaintext, nil
}

// MAC computes a keyed BLAKE2b-256 MAC of data. Used for revision/chunk uids
// and for verifying an envelope's integrity tag on load.
func MAC(key, data []byte) ([]byte, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new mac: %w", err)
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// VerifyMAC recomputes MAC(key, data) and compares it to want in constant
// time.
func VerifyMAC(key, data, want []byte) (bool, error) {
	got, err := MAC(key, data)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// DeriveSubkey derives a domain-separated subkey of length n from parent
// using parent as the BLAKE2b key and context as the hashed input — the
// same "derive a scoped key from a bigger one" idea the manager hierarchy
// needs at every layer (main → account/identity, collection → item).
func DeriveSubkey(parent []byte, n int, context string) ([]byte, error) {
	h, err := blake2b.New(n, parent)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new subkey mac: %w", err)
	}
	h.Write([]byte(context))
	return h.Sum(nil), nil
}

// Zero overwrites b with zeroes in place. Called on every secret byte slice
// once a CryptoManager or Account is done with it.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// X25519KeyPair is an ECDH key pair used for the identity box (invitation
// sealing), generated with stdlib crypto/ecdh.
type X25519KeyPair struct {
	Private *ecdh.PrivateKey
	Public  *ecdh.PublicKey
}

// GenerateX25519KeyPair creates a fresh Curve25519 key pair.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate x25519 key: %w", err)
	}
	return &X25519KeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// X25519PublicFromBytes parses a raw 32-byte Curve25519 public key.
func X25519PublicFromBytes(b []byte) (*ecdh.PublicKey, error) {
	return ecdh.X25519().NewPublicKey(b)
}

// X25519PrivateFromBytes parses a raw 32-byte Curve25519 private key.
func X25519PrivateFromBytes(b []byte) (*ecdh.PrivateKey, error) {
	return ecdh.X25519().NewPrivateKey(b)
}

// Ed25519KeyPair is a signing key pair used for login challenges and
// invitation signatures.
type Ed25519KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateEd25519KeyPair creates a fresh Ed25519 signing key pair.
func GenerateEd25519KeyPair() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate ed25519 key: %w", err)
	}
	return &Ed25519KeyPair{Public: pub, Private: priv}, nil
}

// Sign signs message with priv.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

// Verify reports whether sig is a valid Ed25519 signature of message by pub.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	return ed25519.Verify(pub, message, sig)
}

// boxHKDFInfo domain-separates the key stretched out of an X25519 shared
// point from any other use of HKDF in the module.
const boxHKDFInfo = "vaultsync-box-seal-signed-v1"

// BoxSealSigned implements the invitation box: it performs an X25519 ECDH
// between an ephemeral key and the recipient's public key, stretches the
// shared secret into a ChaCha20-Poly1305 key via HKDF, seals plaintext under
// it, and appends an Ed25519 signature (by the sender's identity signing
// key) over the ephemeral public key ‖ ciphertext so the recipient can
// authenticate the sender. Output layout:
//
//	ephemeralPub(32) ‖ nonce(12) ‖ ciphertext ‖ signature(64)
func BoxSealSigned(senderSigningKey ed25519.PrivateKey, recipientPub *ecdh.PublicKey, plaintext, ad []byte) ([]byte, error) {
	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: ecdh: %w", err)
	}
	key, err := stretchSharedSecret(shared)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new aead: %w", err)
	}
	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, err
	}
	ephemeralPub := ephemeral.PublicKey().Bytes()
	ciphertext := aead.Seal(nil, nonce, plaintext, ad)

	signed := make([]byte, 0, len(ephemeralPub)+len(ciphertext))
	signed = append(signed, ephemeralPub...)
	signed = append(signed, ciphertext...)
	sig := Sign(senderSigningKey, signed)

	out := make([]byte, 0, len(ephemeralPub)+len(nonce)+len(ciphertext)+len(sig))
	out = append(out, ephemeralPub...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	out = append(out, sig...)
	return out, nil
}

// BoxOpenSigned verifies the Ed25519 signature in sealed against
// senderVerifyKey, then decrypts it under recipientPriv. Any failure —
// signature mismatch or AEAD failure — returns an error; callers surface it
// as apperr.Integrity.
func BoxOpenSigned(recipientPriv *ecdh.PrivateKey, senderVerifyKey ed25519.PublicKey, sealed, ad []byte) ([]byte, error) {
	const minLen = X25519KeySize + NonceSize + Ed25519SigSize
	if len(sealed) < minLen {
		return nil, fmt.Errorf("cryptoutil: sealed box too short")
	}
	ephemeralPubBytes := sealed[:X25519KeySize]
	nonce := sealed[X25519KeySize : X25519KeySize+NonceSize]
	sig := sealed[len(sealed)-Ed25519SigSize:]
	ciphertext := sealed[X25519KeySize+NonceSize : len(sealed)-Ed25519SigSize]

	signed := make([]byte, 0, X25519KeySize+len(ciphertext))
	signed = append(signed, ephemeralPubBytes...)
	signed = append(signed, ciphertext...)
	if !Verify(senderVerifyKey, signed, sig) {
		return nil, fmt.Errorf("cryptoutil: invalid sender signature")
	}

	ephemeralPub, err := ecdh.X25519().NewPublicKey(ephemeralPubBytes)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: parse ephemeral public key: %w", err)
	}
	shared, err := recipientPriv.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: ecdh: %w", err)
	}
	key, err := stretchSharedSecret(shared)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new aead: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: open: %w", err)
	}
	return plaintext, nil
}

func stretchSharedSecret(shared []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, shared, nil, []byte(boxHKDFInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("cryptoutil: hkdf stretch: %w", err)
	}
	return key, nil
}
