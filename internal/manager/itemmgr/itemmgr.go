// Package itemmgr implements CollectionItemManager: the per-item sync
// state machine — create/fetch/list/batch/transaction/fetchUpdates/
// itemRevisions, with chunk upload gating before any batch or transaction
// call. Chunk fan-out uses golang.org/x/sync/errgroup for bounded
// concurrency.
package itemmgr

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// maxConcurrentChunkUploads bounds the errgroup fan-out so a
// many-thousand-chunk item does not open unbounded simultaneous requests.
const maxConcurrentChunkUploads = 8

// Manager is the CollectionItemManager boundary.
type Manager interface {
	Create(ctx context.Context, collectionMgr *cryptomanager.CollectionCryptoManager, meta, content []byte, ownKey bool) (*item.EncryptedCollectionItem, error)
	Fetch(ctx context.Context, collectionUID, itemUID string, opts syncmodel.ListOptions) (*item.EncryptedCollectionItem, error)
	List(ctx context.Context, collectionUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error)
	Batch(ctx context.Context, collectionUID string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error
	Transaction(ctx context.Context, collectionUID, stoken string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error
	FetchUpdates(ctx context.Context, collectionUID string, refs []syncmodel.ItemRef, opts syncmodel.FetchUpdatesOptions) ([]syncmodel.UpdateResult, error)
	ItemRevisions(ctx context.Context, collectionUID, itemUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error)
	DownloadChunk(ctx context.Context, collectionUID, itemUID, chunkUID string) ([]byte, error)
}

type manager struct {
	logger  *zap.Logger
	backend transport.Backend
	account accountsvc.Service
}

// New constructs a CollectionItemManager bound to account for server URL
// and auth token resolution.
func New(logger *zap.Logger, backend transport.Backend, account accountsvc.Service) Manager {
	return &manager{logger: logger.Named("itemmgr"), backend: backend, account: account}
}

func (m *manager) requireLoggedIn() error {
	if !m.account.IsLoggedIn() {
		return apperr.New(apperr.Programming, "item operation attempted on a logged-out account")
	}
	return nil
}

// Create builds a new EncryptedCollectionItem under collectionMgr, New
// until the caller batches/transactions it.
func (m *manager) Create(ctx context.Context, collectionMgr *cryptomanager.CollectionCryptoManager, meta, content []byte, ownKey bool) (*item.EncryptedCollectionItem, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	return envelope.CreateItem(collectionMgr, meta, content, ownKey)
}

// Fetch loads one item's ciphertext; the returned item is Clean. A 404
// from the backend is not an error: it surfaces as a Gone sentinel item
// so callers tracking a previously-known uid can react to its removal
// instead of handling fetch failure and deletion as separate cases.
func (m *manager) Fetch(ctx context.Context, collectionUID, itemUID string, opts syncmodel.ListOptions) (*item.EncryptedCollectionItem, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	it, err := m.backend.FetchItem(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, itemUID, opts)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			m.logger.Debug("item gone", zap.String("itemUid", itemUID))
			return &item.EncryptedCollectionItem{UID: itemUID, Gone: true}, nil
		}
		return nil, err
	}
	it.MarkSaved()
	return it, nil
}

// List pages through a collection's items.
func (m *manager) List(ctx context.Context, collectionUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	items, page, err := m.backend.ListItems(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, opts)
	if err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	for _, it := range items {
		it.MarkSaved()
	}
	return items, page, nil
}

// uploadPendingChunks PUTs every chunk across items whose Content is
// non-empty (i.e. newly produced by buildRevision/MarkNewChunks), fanning
// out with a bounded errgroup. Unchanged chunks (Content nil) are skipped
// — the server already has them.
func (m *manager) uploadPendingChunks(ctx context.Context, collectionUID string, items []*item.EncryptedCollectionItem) error {
	serverURL, authToken := m.account.ServerURL(), m.account.AuthToken()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunkUploads)
	for _, it := range items {
		it := it
		for _, chunk := range it.Content.Chunks {
			chunk := chunk
			if len(chunk.Content) == 0 {
				continue
			}
			g.Go(func() error {
				return m.backend.UploadChunk(gctx, serverURL, authToken, collectionUID, it.UID, chunk.ChunkUID, chunk.Content)
			})
		}
	}
	return g.Wait()
}

// Batch atomically applies every item's update, gated on (uid, lastEtag)
// for each item and dep. On success every item transitions Dirty→Clean;
// on ConflictError no item changes and the caller must refetch and retry.
func (m *manager) Batch(ctx context.Context, collectionUID string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	if err := m.uploadPendingChunks(ctx, collectionUID, items); err != nil {
		return err
	}
	if err := m.backend.Batch(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, items, deps); err != nil {
		return err
	}
	for _, it := range items {
		it.MarkSaved()
	}
	return nil
}

// Transaction is Batch additionally gated on the collection's stoken.
func (m *manager) Transaction(ctx context.Context, collectionUID, stoken string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	if err := m.uploadPendingChunks(ctx, collectionUID, items); err != nil {
		return err
	}
	if err := m.backend.Transaction(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, stoken, items, deps); err != nil {
		return err
	}
	for _, it := range items {
		it.MarkSaved()
	}
	return nil
}

// FetchUpdates returns the current remote version for every ref whose
// lastEtag the server has since advanced past (or, with opts.Stoken set,
// every item the stoken-based diff surfaces).
func (m *manager) FetchUpdates(ctx context.Context, collectionUID string, refs []syncmodel.ItemRef, opts syncmodel.FetchUpdatesOptions) ([]syncmodel.UpdateResult, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	return m.backend.FetchUpdates(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, refs, opts)
}

// ItemRevisions pages through itemUID's historical revisions, each
// presented as a pseudo-item whose etag is the revision's own uid.
func (m *manager) ItemRevisions(ctx context.Context, collectionUID, itemUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return m.backend.ItemRevisions(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, itemUID, opts)
}

// DownloadChunk fetches one chunk's ciphertext on demand — the prefetch=auto
// path, used when fetch/list returned placeholders.
func (m *manager) DownloadChunk(ctx context.Context, collectionUID, itemUID, chunkUID string) ([]byte, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	return m.backend.DownloadChunk(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, itemUID, chunkUID)
}
