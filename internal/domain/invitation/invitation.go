// Package invitation holds the SignedInvitation envelope: a sender-signed,
// recipient-sealed wrap of a collection key.
package invitation

import "github.com/mapleapps-ca/vaultsync/internal/domain/keys"

// SignedInvitation is the wire/storage shape of an invitation to share a
// collection. SignedEncryptionKey is the collection key sealed with the
// sender→receiver asymmetric box (cryptoutil.BoxSealSigned) and implicitly
// signed by the sender's identity key as part of that construction.
type SignedInvitation struct {
	UID                 string           `cbor:"uid"`
	Version             int              `cbor:"version"`
	FromUsername        string           `cbor:"from_username"`
	FromPubkey          []byte           `cbor:"from_pubkey"`
	ToUsername          string           `cbor:"to_username"`
	ToPubkey            []byte           `cbor:"to_pubkey"`
	AccessLevel         keys.AccessLevel `cbor:"access_level"`
	SignedEncryptionKey []byte           `cbor:"signed_encryption_key"`
	CollectionType      []byte           `cbor:"collection_type"`
}
