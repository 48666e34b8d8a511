// Package collection holds the EncryptedCollection envelope: a sealed
// collection key plus the collection's own item (storing the collection's
// meta+content) and its sync bookkeeping (etag, stoken).
package collection

import (
	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
)

// EncryptedCollection is a server-assigned opaque collection envelope.
// CollectionKey is AEAD-sealed, decryptable by the holder's
// AccountCryptoManager or by an invitation-granted key; Item is the
// collection's own EncryptedCollectionItem holding the collection's
// meta+content under CollectionKey.
type EncryptedCollection struct {
	UID                string                         `cbor:"uid"`
	Version            int                            `cbor:"version"`
	AccessLevel         keys.AccessLevel               `cbor:"access_level"`
	CollectionKey       []byte                         `cbor:"collection_key"`
	CollectionType      []byte                         `cbor:"collection_type"`
	Item               *item.EncryptedCollectionItem   `cbor:"item"`
	Etag               *string                         `cbor:"etag,omitempty"`
	LastEtag           *string                         `cbor:"last_etag,omitempty"`
	Stoken             *string                         `cbor:"stoken,omitempty"`
	KeyHistory         []keys.EncryptedHistoricalKey    `cbor:"key_history,omitempty"`
	RemovedMemberships []string                        `cbor:"removed_memberships,omitempty"`
}

// MarkSaved records a successful upload the way item.MarkSaved does.
func (c *EncryptedCollection) MarkSaved() {
	if c.Etag == nil {
		return
	}
	etag := *c.Etag
	c.LastEtag = &etag
}

// IsUnsaved reports whether the collection's own item has a pending local
// edit or has never been uploaded.
func (c *EncryptedCollection) IsUnsaved() bool {
	return c.Item == nil || c.Item.IsUnsaved()
}
