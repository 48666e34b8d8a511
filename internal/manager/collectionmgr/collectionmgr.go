// Package collectionmgr implements CollectionManager: create, fetch, list,
// upload, and transaction. Each method resolves auth state, builds a
// request, calls through the Backend port, and decodes the result, with
// the etag/lastEtag optimistic-concurrency discipline layered on top; the
// wire encoding is the Backend implementation's concern.
package collectionmgr

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// Manager is the CollectionManager boundary.
type Manager interface {
	Create(ctx context.Context, collectionType string, meta, content []byte) (*collection.EncryptedCollection, error)
	Fetch(ctx context.Context, uid string, opts syncmodel.ListOptions) (*collection.EncryptedCollection, error)
	List(ctx context.Context, opts syncmodel.ListOptions) ([]*collection.EncryptedCollection, syncmodel.IteratorPage, error)
	Upload(ctx context.Context, col *collection.EncryptedCollection) error
	Transaction(ctx context.Context, col *collection.EncryptedCollection, stoken string) error
	CryptoManagerFor(ctx context.Context, col *collection.EncryptedCollection) (*cryptomanager.CollectionCryptoManager, error)
}

type manager struct {
	logger  *zap.Logger
	backend transport.Backend
	account accountsvc.Service
}

// New constructs a CollectionManager bound to account for server URL,
// auth token, and AccountCryptoManager resolution.
func New(logger *zap.Logger, backend transport.Backend, account accountsvc.Service) Manager {
	return &manager{logger: logger.Named("collectionmgr"), backend: backend, account: account}
}

func (m *manager) requireLoggedIn() error {
	if !m.account.IsLoggedIn() {
		return apperr.New(apperr.Programming, "collection operation attempted on a logged-out account")
	}
	return nil
}

// Create builds a fresh EncryptedCollection under the account's
// AccountCryptoManager; it is not yet uploaded (etag is nil, i.e. New).
func (m *manager) Create(ctx context.Context, collectionType string, meta, content []byte) (*collection.EncryptedCollection, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	accountMgr, err := m.account.AccountCryptoManager()
	if err != nil {
		return nil, err
	}
	col, err := envelope.CreateCollection(accountMgr, collectionType, meta, content)
	if err != nil {
		return nil, err
	}
	return col, nil
}

// Fetch loads one collection's ciphertext from the server.
func (m *manager) Fetch(ctx context.Context, uid string, opts syncmodel.ListOptions) (*collection.EncryptedCollection, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	return m.backend.FetchCollection(ctx, m.account.ServerURL(), m.account.AuthToken(), uid, opts)
}

// List pages through the account's collections.
func (m *manager) List(ctx context.Context, opts syncmodel.ListOptions) ([]*collection.EncryptedCollection, syncmodel.IteratorPage, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return m.backend.ListCollections(ctx, m.account.ServerURL(), m.account.AuthToken(), opts)
}

// Upload creates (etag nil) or updates (etag present) col on the server.
// A server ConflictError means the stored etag advanced past lastEtag and
// the caller must refetch and retry; the collection is left unmarked on
// failure. On success the collection's lastEtag is set to etag (Clean).
func (m *manager) Upload(ctx context.Context, col *collection.EncryptedCollection) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	serverURL, authToken := m.account.ServerURL(), m.account.AuthToken()
	if col.Etag == nil {
		created, err := m.backend.CreateCollection(ctx, serverURL, authToken, col)
		if err != nil {
			return err
		}
		col.UID = created.UID
		col.Etag = created.Etag
		col.Stoken = created.Stoken
	} else {
		if err := m.backend.UpdateCollection(ctx, serverURL, authToken, col, false); err != nil {
			return err
		}
	}
	col.MarkSaved()
	return nil
}

// Transaction is Upload gated additionally on the collection's stoken, so
// the server also rejects it if the sync token advanced underneath the
// caller since stoken was last observed.
func (m *manager) Transaction(ctx context.Context, col *collection.EncryptedCollection, stoken string) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	if col.Etag == nil {
		return apperr.New(apperr.Programming, "transaction requires an already-created collection")
	}
	col.Stoken = &stoken
	if err := m.backend.UpdateCollection(ctx, m.account.ServerURL(), m.account.AuthToken(), col, true); err != nil {
		return err
	}
	col.MarkSaved()
	return nil
}

// CryptoManagerFor derives col's CollectionCryptoManager through the
// account's key hierarchy.
func (m *manager) CryptoManagerFor(ctx context.Context, col *collection.EncryptedCollection) (*cryptomanager.CollectionCryptoManager, error) {
	accountMgr, err := m.account.AccountCryptoManager()
	if err != nil {
		return nil, err
	}
	return envelope.GetCryptoManager(accountMgr, col)
}
