package cryptomanager

import (
	"crypto/ecdh"
	"crypto/ed25519"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

// IdentityCryptoManager wraps the long-lived Curve25519+Ed25519 identity
// key pair used to seal and sign invitations.
type IdentityCryptoManager struct {
	boxPriv  *ecdh.PrivateKey
	boxPub   *ecdh.PublicKey
	signPriv ed25519.PrivateKey
	signPub  ed25519.PublicKey
}

// identityPrivateKeyLen is the length of the concatenated
// x25519Priv ‖ ed25519Priv blob MainCryptoManager seals inside
// encryptedContent.
const identityPrivateKeyLen = cryptoutil.X25519KeySize + ed25519.PrivateKeySize

func newIdentityCryptoManager(identityPrivateKey, boxPubBytes, signPubBytes []byte) (*IdentityCryptoManager, error) {
	if len(identityPrivateKey) != identityPrivateKeyLen {
		return nil, apperr.New(apperr.Programming, "identity private key has unexpected length")
	}
	boxPrivBytes := identityPrivateKey[:cryptoutil.X25519KeySize]
	signPrivBytes := identityPrivateKey[cryptoutil.X25519KeySize:]

	boxPriv, err := cryptoutil.X25519PrivateFromBytes(boxPrivBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "parse identity box private key", err)
	}
	boxPub, err := cryptoutil.X25519PublicFromBytes(boxPubBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "parse identity box public key", err)
	}
	return &IdentityCryptoManager{
		boxPriv:  boxPriv,
		boxPub:   boxPub,
		signPriv: ed25519.PrivateKey(signPrivBytes),
		signPub:  ed25519.PublicKey(signPubBytes),
	}, nil
}

// GenerateIdentityKeyPair creates a fresh identity key pair, returning the
// concatenated private-key blob (to be sealed into encryptedContent) and
// the two public keys (to be published on the account profile).
func GenerateIdentityKeyPair() (privateBlob, boxPub, signPub []byte, err error) {
	box, err := cryptoutil.GenerateX25519KeyPair()
	if err != nil {
		return nil, nil, nil, apperr.Wrap(apperr.Programming, "generate identity box key", err)
	}
	sign, err := cryptoutil.GenerateEd25519KeyPair()
	if err != nil {
		return nil, nil, nil, apperr.Wrap(apperr.Programming, "generate identity signing key", err)
	}
	privateBlob = append(append([]byte{}, box.Private.Bytes()...), sign.Private...)
	return privateBlob, box.Public.Bytes(), sign.Public, nil
}

// ParseX25519PublicKey parses a raw 32-byte Curve25519 public key, the form
// an invitation recipient's box pubkey travels in over the wire.
func ParseX25519PublicKey(b []byte) (*ecdh.PublicKey, error) {
	pub, err := cryptoutil.X25519PublicFromBytes(b)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "parse x25519 public key", err)
	}
	return pub, nil
}

// SignPublicKey returns the Ed25519 public key other users verify
// invitation signatures against.
func (id *IdentityCryptoManager) SignPublicKey() ed25519.PublicKey {
	return id.signPub
}

// BoxPublicKey returns the X25519 public key invitations addressed to this
// identity are sealed against.
func (id *IdentityCryptoManager) BoxPublicKey() *ecdh.PublicKey {
	return id.boxPub
}

// SealInvitationKey seals collectionKey for recipientBoxPub, signed by
// this identity's signing key.
func (id *IdentityCryptoManager) SealInvitationKey(collectionKey []byte, recipientBoxPub *ecdh.PublicKey) ([]byte, error) {
	sealed, err := cryptoutil.BoxSealSigned(id.signPriv, recipientBoxPub, collectionKey, []byte(domainInvitation))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal invitation key", err)
	}
	return sealed, nil
}

// OpenInvitationKey verifies senderSignPub signed the sealed blob and
// decrypts the collection key addressed to this identity. Fails with
// IntegrityError on signature or AEAD failure, per
// CollectionInvitationManager.accept's contract.
func (id *IdentityCryptoManager) OpenInvitationKey(sealed []byte, senderSignPub ed25519.PublicKey) ([]byte, error) {
	key, err := cryptoutil.BoxOpenSigned(id.boxPriv, senderSignPub, sealed, []byte(domainInvitation))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "open invitation key", err)
	}
	return key, nil
}

// Zero releases the wrapped private key material.
func (id *IdentityCryptoManager) Zero() {
	cryptoutil.Zero(id.signPriv)
	// ecdh.PrivateKey does not expose mutable raw byte access for
	// in-place zeroing; dropping the reference is the best this manager
	// can do for the box key once the caller discards it.
	id.boxPriv = nil
	id.signPriv = nil
}
