package cryptomanager

import (
	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

// AccountCryptoManager wraps the accountKey: the symmetric key collection
// keys are sealed under for every collection the account owns directly
// (as opposed to collections received through an invitation, whose key
// arrives pre-sealed for the recipient's identity key).
type AccountCryptoManager struct {
	accountKey []byte
}

func newAccountCryptoManager(accountKey []byte) (*AccountCryptoManager, error) {
	if len(accountKey) != cryptoutil.KeySize {
		return nil, apperr.New(apperr.Programming, "account key has unexpected length")
	}
	return &AccountCryptoManager{accountKey: append([]byte{}, accountKey...)}, nil
}

// Zero releases the wrapped account key.
func (a *AccountCryptoManager) Zero() {
	cryptoutil.Zero(a.accountKey)
}

// SealCollectionKey seals a fresh collection key under the account key,
// used by EncryptedCollection.Create.
func (a *AccountCryptoManager) SealCollectionKey(collectionKey []byte) ([]byte, error) {
	sealed, err := cryptoutil.Seal(a.accountKey, collectionKey, []byte(domainCollection))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "seal collection key", err)
	}
	return sealed, nil
}

// OpenCollectionKey decrypts a collection key this account sealed for
// itself. Fails with IntegrityError on any AEAD failure, per
// EncryptedCollection.getCryptoManager's contract.
func (a *AccountCryptoManager) OpenCollectionKey(sealed []byte) ([]byte, error) {
	key, err := cryptoutil.Open(a.accountKey, sealed, []byte(domainCollection))
	if err != nil {
		return nil, apperr.Wrap(apperr.Integrity, "decrypt collection key", err)
	}
	return key, nil
}
