package envelope

import (
	"fmt"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
)

// CreateCollection generates a fresh collectionKey, constructs a sentinel
// EncryptedCollectionItem under it (holding meta+content), and AEAD-seals
// collectionKey under accountMgr. The result has Etag nil and an empty
// UID — the server assigns one on the first successful upload.
func CreateCollection(accountMgr *cryptomanager.AccountCryptoManager, collectionType string, meta, content []byte) (*collection.EncryptedCollection, error) {
	collectionKey, err := cryptomanager.GenerateCollectionKey()
	if err != nil {
		return nil, err
	}
	collectionMgr, err := cryptomanager.NewCollectionCryptoManager(collectionKey)
	if err != nil {
		return nil, err
	}

	sealedType, err := collectionMgr.EncryptType(collectionType)
	if err != nil {
		return nil, err
	}

	sentinel, err := CreateItem(collectionMgr, meta, content, false)
	if err != nil {
		return nil, err
	}

	sealedCollectionKey, err := accountMgr.SealCollectionKey(collectionKey)
	if err != nil {
		return nil, err
	}

	return &collection.EncryptedCollection{
		Version:        1,
		AccessLevel:    keys.AccessLevelAdmin,
		CollectionKey:  sealedCollectionKey,
		CollectionType: sealedType,
		Item:           sentinel,
	}, nil
}

// GetCryptoManager decrypts c's sealed collection key under accountMgr and
// returns the derived CollectionCryptoManager. Fails with IntegrityError if
// c's version is unsupported or decryption fails.
func GetCryptoManager(accountMgr *cryptomanager.AccountCryptoManager, c *collection.EncryptedCollection) (*cryptomanager.CollectionCryptoManager, error) {
	if c.Version != cryptomanager.SupportedVersion {
		return nil, apperr.New(apperr.Integrity, fmt.Sprintf("unsupported collection version %d", c.Version))
	}
	key, err := accountMgr.OpenCollectionKey(c.CollectionKey)
	if err != nil {
		return nil, err
	}
	return cryptomanager.NewCollectionCryptoManager(key)
}

// GetCryptoManagerFromKey wraps an already-decrypted collection key — used
// when the key arrived through invitation acceptance rather than the
// account's own sealed copy.
func GetCryptoManagerFromKey(collectionKey []byte) (*cryptomanager.CollectionCryptoManager, error) {
	return cryptomanager.NewCollectionCryptoManager(collectionKey)
}

// RotateCollectionKey rotates c's collection key in place using mgr,
// appending the retired key to c.KeyHistory (still AEAD-sealed under the
// new collection key so a holder of the new key can always recover any
// retired one). Callers must re-seal and re-distribute the new key to
// every current member; this function only updates the local envelope and
// crypto manager.
func RotateCollectionKey(accountMgr *cryptomanager.AccountCryptoManager, mgr *cryptomanager.CollectionCryptoManager, c *collection.EncryptedCollection, reason string) error {
	newKey, hist, err := mgr.RotateKey(reason, len(c.KeyHistory)+1)
	if err != nil {
		return err
	}
	sealedNewKey, err := accountMgr.SealCollectionKey(newKey)
	if err != nil {
		return err
	}
	c.CollectionKey = sealedNewKey
	c.KeyHistory = append(c.KeyHistory, hist)
	return nil
}
