package cryptomanager

import (
	"time"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
)

// CollectionCryptoManager wraps a collection's 32-byte symmetric key and
// derives per-item managers from it.
type CollectionCryptoManager struct {
	key []byte
}

// GenerateCollectionKey returns a fresh 32-byte collection key.
func GenerateCollectionKey() ([]byte, error) {
	key, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate collection key", err)
	}
	return key, nil
}

// NewCollectionCryptoManager wraps an already-decrypted collection key.
func NewCollectionCryptoManager(collectionKey []byte) (*CollectionCryptoManager, error) {
	if len(collectionKey) != cryptoutil.KeySize {
		return nil, apperr.New(apperr.Programming, "collection key has unexpected length")
	}
	return &CollectionCryptoManager{key: append([]byte{}, collectionKey...)}, nil
}

// Zero releases the wrapped collection key.
func (c *CollectionCryptoManager) Zero() {
	cryptoutil.Zero(c.key)
}

// EncryptType AEAD-seals the (server-visible) collection type tag under
// the collection key so the server can scope by type without learning it.
func (c *CollectionCryptoManager) EncryptType(collectionType string) ([]byte, error) {
	sealed, err := cryptoutil.Seal(c.key, []byte(collectionType), []byte(domainCollection+"Type"))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal collection type", err)
	}
	return sealed, nil
}

// DecryptType recovers the collection type tag.
func (c *CollectionCryptoManager) DecryptType(sealed []byte) (string, error) {
	plaintext, err := cryptoutil.Open(c.key, sealed, []byte(domainCollection+"Type"))
	if err != nil {
		return "", apperr.Wrap(apperr.Integrity, "decrypt collection type", err)
	}
	return string(plaintext), nil
}

// SealItemKey seals a fresh per-item key under the collection key. Items
// without a distinct key use the collection key directly and never call
// this.
func (c *CollectionCryptoManager) SealItemKey(itemKey []byte) ([]byte, error) {
	sealed, err := cryptoutil.Seal(c.key, itemKey, []byte(domainColItemKey))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal item key", err)
	}
	return sealed, nil
}

// OpenItemKey decrypts a per-item key sealed under this collection key.
func (c *CollectionCryptoManager) OpenItemKey(sealed []byte) ([]byte, error) {
	key, err := cryptoutil.Open(c.key, sealed, []byte(domainColItemKey))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decrypt item key", err)
	}
	return key, nil
}

// ItemCryptoManager derives a CollectionItemCryptoManager for an item
// whose EncryptionKey field is sealed (sealedItemKey non-nil), or one that
// shares the collection key directly (sealedItemKey nil).
func (c *CollectionCryptoManager) ItemCryptoManager(sealedItemKey []byte) (*CollectionItemCryptoManager, error) {
	if sealedItemKey == nil {
		return newCollectionItemCryptoManager(c.key)
	}
	itemKey, err := c.OpenItemKey(sealedItemKey)
	if err != nil {
		return nil, err
	}
	return newCollectionItemCryptoManager(itemKey)
}

// RotateKey generates a fresh collection key, retaining the previous key
// (still sealed, now tagged with a rotation reason and timestamp) so
// members who have not yet re-synced can still decrypt revisions created
// under it. This is an opt-in operation the core exposes but never calls
// automatically; the application decides when to rotate.
func (c *CollectionCryptoManager) RotateKey(reason string, previousKeyVersion int) ([]byte, keys.EncryptedHistoricalKey, error) {
	newKey, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, keys.EncryptedHistoricalKey{}, apperr.Wrap(apperr.Programming, "generate rotated collection key", err)
	}
	// Seal the retired key under the new one, so any future holder of the
	// current collection key can still recover it to read old revisions.
	sealedOld, err := cryptoutil.Seal(newKey, c.key, []byte(domainCollection+"KeyHistory"))
	if err != nil {
		return nil, keys.EncryptedHistoricalKey{}, apperr.Wrap(apperr.Integrity, "seal retired collection key", err)
	}
	hist := keys.EncryptedHistoricalKey{
		KeyVersion:    previousKeyVersion,
		SealedKey:     sealedOld,
		RotatedAt:     time.Now(),
		RotatedReason: reason,
	}
	cryptoutil.Zero(c.key)
	c.key = newKey
	return append([]byte{}, newKey...), hist, nil
}

// OpenHistoricalKey decrypts a retired collection key recorded in
// EncryptedCollection.KeyHistory, using the current (post-rotation)
// collection key this manager wraps.
func (c *CollectionCryptoManager) OpenHistoricalKey(hist keys.EncryptedHistoricalKey) ([]byte, error) {
	old, err := cryptoutil.Open(c.key, hist.SealedKey, []byte(domainCollection+"KeyHistory"))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decrypt historical collection key", err)
	}
	return old, nil
}
