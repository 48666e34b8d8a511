package envelope

import (
	"crypto/ed25519"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
)

// CreateInvitation decrypts c's collection key (through accountMgr),
// constructs a signed+sealed wrap of it addressed from identityMgr's
// identity to recipientBoxPub, and returns a SignedInvitation ready to
// post.
func CreateInvitation(
	accountMgr *cryptomanager.AccountCryptoManager,
	identityMgr *cryptomanager.IdentityCryptoManager,
	c *collection.EncryptedCollection,
	fromUsername, toUsername string,
	toSignPubkey, toBoxPubkeyBytes []byte,
	accessLevel keys.AccessLevel,
) (*invitation.SignedInvitation, error) {
	collectionKey, err := accountMgr.OpenCollectionKey(c.CollectionKey)
	if err != nil {
		return nil, err
	}

	recipientBoxPub, err := cryptomanager.ParseX25519PublicKey(toBoxPubkeyBytes)
	if err != nil {
		return nil, err
	}

	sealed, err := identityMgr.SealInvitationKey(collectionKey, recipientBoxPub)
	if err != nil {
		return nil, err
	}

	uid, err := newClientUID(24)
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate invitation uid", err)
	}

	return &invitation.SignedInvitation{
		UID:                 uid,
		Version:             1,
		FromUsername:        fromUsername,
		FromPubkey:          identityMgr.SignPublicKey(),
		ToUsername:          toUsername,
		ToPubkey:            toSignPubkey,
		AccessLevel:         accessLevel,
		SignedEncryptionKey: sealed,
		CollectionType:      c.CollectionType,
	}, nil
}

// AcceptInvitation verifies inv's sender signature, recovers the
// collection key, and re-seals it under the receiver's AccountCryptoManager
// so the receiver can use the normal EncryptedCollection.GetCryptoManager
// path from then on. Fails with IntegrityError if the signature is
// invalid.
func AcceptInvitation(identityMgr *cryptomanager.IdentityCryptoManager, accountMgr *cryptomanager.AccountCryptoManager, inv *invitation.SignedInvitation) (resealedKey []byte, err error) {
	senderSignPub := ed25519.PublicKey(inv.FromPubkey)
	collectionKey, err := identityMgr.OpenInvitationKey(inv.SignedEncryptionKey, senderSignPub)
	if err != nil {
		return nil, err
	}
	return accountMgr.SealCollectionKey(collectionKey)
}
