// Package envelope implements the EncryptedModels layer: constructing,
// mutating, and verifying EncryptedCollection/EncryptedCollectionItem
// envelopes against the CryptoManagers layer.
package envelope

import (
	"fmt"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
)

// CreateItem builds a brand-new EncryptedCollectionItem under collectionMgr.
// When ownKey is true a fresh per-item key is generated and sealed under
// the collection key (EncryptionKey non-nil); otherwise the item shares the
// collection key directly. The result has Etag set to the new revision's
// uid and LastEtag nil — State() reports New until the first successful
// upload.
func CreateItem(collectionMgr *cryptomanager.CollectionCryptoManager, meta, content []byte, ownKey bool) (*item.EncryptedCollectionItem, error) {
	var sealedItemKey []byte
	if ownKey {
		itemKey, err := cryptomanager.GenerateItemKey()
		if err != nil {
			return nil, err
		}
		sealedItemKey, err = collectionMgr.SealItemKey(itemKey)
		if err != nil {
			return nil, err
		}
	}

	itemMgr, err := collectionMgr.ItemCryptoManager(sealedItemKey)
	if err != nil {
		return nil, err
	}

	rev, err := buildRevision(itemMgr, meta, content, false)
	if err != nil {
		return nil, err
	}

	uid, err := newClientUID(24)
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate item uid", err)
	}

	etag := rev.UID
	return &item.EncryptedCollectionItem{
		UID:           uid,
		Version:       1,
		EncryptionKey: sealedItemKey,
		Content:       rev,
		Etag:          &etag,
	}, nil
}

// ItemCryptoManager derives the CollectionItemCryptoManager for an
// already-constructed item. Fails with IntegrityError if it's version is
// unsupported.
func ItemCryptoManager(collectionMgr *cryptomanager.CollectionCryptoManager, it *item.EncryptedCollectionItem) (*cryptomanager.CollectionItemCryptoManager, error) {
	if it.Version != cryptomanager.SupportedVersion {
		return nil, apperr.New(apperr.Integrity, fmt.Sprintf("unsupported item version %d", it.Version))
	}
	return collectionMgr.ItemCryptoManager(it.EncryptionKey)
}

// SetMeta replaces it's current revision with a freshly constructed one
// carrying new meta but the same content, preserving LastEtag until the
// sync layer acknowledges the upload.
func SetMeta(collectionMgr *cryptomanager.CollectionCryptoManager, it *item.EncryptedCollectionItem, meta []byte) error {
	itemMgr, err := ItemCryptoManager(collectionMgr, it)
	if err != nil {
		return err
	}
	content, err := DecryptContent(itemMgr, it.Content)
	if err != nil {
		return err
	}
	return setRevision(itemMgr, it, meta, content, it.Content.Deleted)
}

// SetContent replaces it's current revision with a freshly constructed one
// carrying new content but the same meta.
func SetContent(collectionMgr *cryptomanager.CollectionCryptoManager, it *item.EncryptedCollectionItem, content []byte) error {
	itemMgr, err := ItemCryptoManager(collectionMgr, it)
	if err != nil {
		return err
	}
	meta, err := DecryptMeta(itemMgr, it.Content)
	if err != nil {
		return err
	}
	return setRevision(itemMgr, it, meta, content, it.Content.Deleted)
}

// MarkDeleted replaces it's current revision with one whose Deleted flag is
// set, keeping the current meta/content otherwise — the tombstone revision
// sync consumers recognize.
func MarkDeleted(collectionMgr *cryptomanager.CollectionCryptoManager, it *item.EncryptedCollectionItem) error {
	itemMgr, err := ItemCryptoManager(collectionMgr, it)
	if err != nil {
		return err
	}
	meta, err := DecryptMeta(itemMgr, it.Content)
	if err != nil {
		return err
	}
	content, err := DecryptContent(itemMgr, it.Content)
	if err != nil {
		return err
	}
	return setRevision(itemMgr, it, meta, content, true)
}

func setRevision(itemMgr *cryptomanager.CollectionItemCryptoManager, it *item.EncryptedCollectionItem, meta, content []byte, deleted bool) error {
	next, err := buildRevision(itemMgr, meta, content, deleted)
	if err != nil {
		return err
	}
	MarkNewChunks(next, it.Content)
	it.Content = next
	etag := next.UID
	it.Etag = &etag
	return nil
}

// VerifyItem recomputes it's revision uid and re-decrypts its meta,
// returning IntegrityError on any mismatch.
func VerifyItem(collectionMgr *cryptomanager.CollectionCryptoManager, it *item.EncryptedCollectionItem) error {
	itemMgr, err := ItemCryptoManager(collectionMgr, it)
	if err != nil {
		return err
	}
	if err := Verify(itemMgr, it.Content); err != nil {
		return err
	}
	if _, err := DecryptMeta(itemMgr, it.Content); err != nil {
		return err
	}
	if it.Etag == nil || *it.Etag != it.Content.UID {
		return apperr.New(apperr.Integrity, "item etag does not match current revision uid")
	}
	return nil
}
