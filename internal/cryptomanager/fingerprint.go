package cryptomanager

import (
	"crypto/sha256"

	"github.com/tyler-smith/go-bip39"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
)

// VerificationFingerprint renders a public key as a BIP-39 mnemonic so two
// users can compare identity keys out-of-band (reading the phrase aloud)
// instead of comparing raw bytes. Deterministic in publicKey.
func VerificationFingerprint(publicKey []byte) (string, error) {
	if len(publicKey) == 0 {
		return "", apperr.New(apperr.Programming, "verification fingerprint: empty public key")
	}
	hash := sha256.Sum256(publicKey)
	mnemonic, err := bip39.NewMnemonic(hash[:])
	if err != nil {
		return "", apperr.Wrap(apperr.Programming, "generate verification fingerprint", err)
	}
	return mnemonic, nil
}

// VerifyFingerprint reports whether phrase is the fingerprint of publicKey.
func VerifyFingerprint(publicKey []byte, phrase string) bool {
	expected, err := VerificationFingerprint(publicKey)
	if err != nil {
		return false
	}
	return expected == phrase
}
