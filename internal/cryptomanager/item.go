package cryptomanager

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

// CollectionItemCryptoManager wraps an item's effective key (its own, or
// the collection's, when the item has none of its own) and is the
// manager every revision/meta/chunk operation in the envelope package
// goes through.
type CollectionItemCryptoManager struct {
	key []byte
}

// GenerateItemKey returns a fresh 32-byte item key, for items that get a
// key distinct from their collection's.
func GenerateItemKey() ([]byte, error) {
	key, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate item key", err)
	}
	return key, nil
}

func newCollectionItemCryptoManager(key []byte) (*CollectionItemCryptoManager, error) {
	if len(key) != cryptoutil.KeySize {
		return nil, apperr.New(apperr.Programming, "item key has unexpected length")
	}
	return &CollectionItemCryptoManager{key: append([]byte{}, key...)}, nil
}

// Zero releases the wrapped item key.
func (m *CollectionItemCryptoManager) Zero() {
	cryptoutil.Zero(m.key)
}

// SealMeta AEAD-seals an item's meta bytes.
func (m *CollectionItemCryptoManager) SealMeta(meta []byte) ([]byte, error) {
	sealed, err := cryptoutil.Seal(m.key, meta, []byte(domainColItemMeta))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal item meta", err)
	}
	return sealed, nil
}

// OpenMeta decrypts an item's meta bytes.
func (m *CollectionItemCryptoManager) OpenMeta(sealed []byte) ([]byte, error) {
	meta, err := cryptoutil.Open(m.key, sealed, []byte(domainColItemMeta))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decrypt item meta", err)
	}
	return meta, nil
}

// SealChunk AEAD-seals one content chunk and returns both the ciphertext
// and its chunkUid (the base64 MAC of the ciphertext). The nonce is derived
// deterministically from the item key and the plaintext rather than drawn
// at random: identical plaintext chunks must reseal to identical
// ciphertext so that re-chunking unchanged content reproduces the same
// chunkUid and the sync layer can skip re-uploading it.
func (m *CollectionItemCryptoManager) SealChunk(plaintext []byte) (ciphertext []byte, chunkUID string, err error) {
	nonce, err := cryptoutil.MAC(m.key, append([]byte(domainColItemChunk+"Nonce"), plaintext...))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Integrity, "derive chunk nonce", err)
	}
	ciphertext, err = cryptoutil.SealWithNonce(m.key, nonce[:cryptoutil.NonceSize], plaintext, []byte(domainColItemChunk))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Integrity, "seal chunk", err)
	}
	mac, err := cryptoutil.MAC(m.key, ciphertext)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Integrity, "mac chunk", err)
	}
	return ciphertext, base64.RawURLEncoding.EncodeToString(mac), nil
}

// OpenChunk decrypts one content chunk, first verifying its ciphertext
// matches the claimed chunkUid.
func (m *CollectionItemCryptoManager) OpenChunk(ciphertext []byte, chunkUID string) ([]byte, error) {
	wantMAC, err := base64.RawURLEncoding.DecodeString(chunkUID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decode chunk uid", err)
	}
	ok, err := cryptoutil.VerifyMAC(m.key, ciphertext, wantMAC)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "verify chunk uid", err)
	}
	if !ok {
		return nil, apperr.New(apperr.Integrity, "chunk uid does not match ciphertext")
	}
	plaintext, err := cryptoutil.Open(m.key, ciphertext, []byte(domainColItemChunk))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decrypt chunk", err)
	}
	return plaintext, nil
}

// RevisionUID computes the revision uid: MAC(meta ‖ ordered chunk uids ‖
// deleted flag), hex-encoded. Callers pass the canonical serialization
// produced by envelope.CanonicalRevisionInput.
func (m *CollectionItemCryptoManager) RevisionUID(canonical []byte) (string, error) {
	mac, err := cryptoutil.MAC(m.key, canonical)
	if err != nil {
		return "", apperr.Wrap(apperr.Integrity, "mac revision", err)
	}
	return hex.EncodeToString(mac), nil
}

// VerifyRevisionUID recomputes the revision uid and compares it to want.
func (m *CollectionItemCryptoManager) VerifyRevisionUID(canonical []byte, want string) (bool, error) {
	got, err := m.RevisionUID(canonical)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
