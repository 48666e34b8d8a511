package cryptomanager

import (
	"fmt"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

// SupportedVersion is the only account/collection/item scheme version this
// build understands. Any encrypted envelope or KDF record carrying a
// different version is refused rather than decrypted against assumptions
// that may no longer hold.
const SupportedVersion = 1

// MainCryptoManager is derived from (mainKey, version); it is the root of
// the key hierarchy and the only manager that ever touches the account's
// main key directly.
type MainCryptoManager struct {
	mainKey []byte
	version int
}

// NewMainCryptoManager wraps an already-derived main key. Callers own
// mainKey's lifetime; Zero releases it. Fails if version is not
// SupportedVersion.
func NewMainCryptoManager(mainKey []byte, version int) (*MainCryptoManager, error) {
	if len(mainKey) != cryptoutil.KeySize {
		return nil, fmt.Errorf("cryptomanager: main key must be %d bytes", cryptoutil.KeySize)
	}
	if version != SupportedVersion {
		return nil, apperr.New(apperr.Integrity, fmt.Sprintf("unsupported account scheme version %d", version))
	}
	return &MainCryptoManager{mainKey: mainKey, version: version}, nil
}

// Zero overwrites the wrapped main key. Call once the MainCryptoManager
// and anything derived from it are no longer needed (logout,
// changePassword).
func (m *MainCryptoManager) Zero() {
	cryptoutil.Zero(m.mainKey)
}

// DeriveLoginCryptoManager derives the Ed25519 key pair used to sign login
// challenges. Deterministic in the main key so a fresh login from the same
// password produces the same login key pair the server already trusts.
func (m *MainCryptoManager) DeriveLoginCryptoManager() (*LoginCryptoManager, error) {
	seed, err := cryptoutil.DeriveSubkey(m.mainKey, 32, domainLogin)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "derive login key", err)
	}
	defer cryptoutil.Zero(seed)
	kp := ed25519KeyPairFromSeed(seed)
	return &LoginCryptoManager{keyPair: kp}, nil
}

// SealAccountContent seals accountKey ‖ identityPrivateKey under the main
// key, producing the encryptedContent blob the server stores opaquely.
func (m *MainCryptoManager) SealAccountContent(accountKey, identityPrivateKey []byte) ([]byte, error) {
	plaintext := append(append([]byte{}, accountKey...), identityPrivateKey...)
	sealed, err := cryptoutil.Seal(m.mainKey, plaintext, []byte(domainAccount))
	cryptoutil.Zero(plaintext)
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal account content", err)
	}
	return sealed, nil
}

// OpenAccountContent decrypts encryptedContent and splits it back into the
// account key and the identity private-key blob. Fails with IntegrityError
// on any AEAD failure — wrong password, tampered server response, or a
// main key from a different account.
func (m *MainCryptoManager) OpenAccountContent(encryptedContent []byte, identityBlobLen int) (accountKey, identityPrivateKey []byte, err error) {
	plaintext, err := cryptoutil.Open(m.mainKey, encryptedContent, []byte(domainAccount))
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Integrity, "decrypt account content", err)
	}
	if len(plaintext) != cryptoutil.KeySize+identityBlobLen {
		return nil, nil, apperr.New(apperr.Integrity, "decrypted account content has unexpected length")
	}
	accountKey = append([]byte{}, plaintext[:cryptoutil.KeySize]...)
	identityPrivateKey = append([]byte{}, plaintext[cryptoutil.KeySize:]...)
	cryptoutil.Zero(plaintext)
	return accountKey, identityPrivateKey, nil
}

// AccountCryptoManager wraps accountKey in an *AccountCryptoManager.
func (m *MainCryptoManager) AccountCryptoManager(accountKey []byte) (*AccountCryptoManager, error) {
	return newAccountCryptoManager(accountKey)
}

// IdentityCryptoManager parses identityPrivateKey (x25519Priv ‖ ed25519Priv)
// alongside the corresponding public keys (as published in the account
// profile) into an *IdentityCryptoManager.
func (m *MainCryptoManager) IdentityCryptoManager(identityPrivateKey, boxPubkey, signPubkey []byte) (*IdentityCryptoManager, error) {
	return newIdentityCryptoManager(identityPrivateKey, boxPubkey, signPubkey)
}

// Version reports the scheme version this manager was constructed with.
func (m *MainCryptoManager) Version() int {
	return m.version
}
