package itemmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// fakeBackend is a minimal in-memory stand-in for transport.Backend,
// playing the server's half of signup plus chunk/batch/transaction/fetch.
// Embedding the nil interface lets it satisfy Backend without implementing
// every method this test never calls.
type fakeBackend struct {
	transport.Backend

	username string
	profile  account.Profile
	token    string

	stored         map[string]*item.EncryptedCollectionItem
	revisions      map[string][]*item.EncryptedCollectionItem
	uploadedChunks []string
	currentStoken  string
	failBatch      bool
}

func (f *fakeBackend) Signup(ctx context.Context, serverURL string, req transport.SignupRequest) (*account.Profile, string, error) {
	f.username = req.Username
	f.profile = account.Profile{
		Username:           req.Username,
		Salt:               req.Salt,
		KDFParams:          req.KDFParams,
		EncryptedContent:   req.EncryptedContent,
		LoginPubkey:        req.LoginPubkey,
		IdentitySignPubkey: req.IdentitySignPubkey,
		IdentityBoxPubkey:  req.IdentityBoxPubkey,
		VerificationID:     req.VerificationID,
	}
	f.token = "token-1"
	profile := f.profile
	return &profile, f.token, nil
}

func (f *fakeBackend) UploadChunk(ctx context.Context, serverURL, authToken, collectionUID, itemUID, chunkUID string, ciphertext []byte) error {
	f.uploadedChunks = append(f.uploadedChunks, chunkUID)
	return nil
}

func (f *fakeBackend) FetchItem(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) (*item.EncryptedCollectionItem, error) {
	it, ok := f.stored[itemUID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such item")
	}
	cp := *it
	return &cp, nil
}

func (f *fakeBackend) Batch(ctx context.Context, serverURL, authToken, collectionUID string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	if f.failBatch {
		return apperr.New(apperr.Conflict, "stale etag")
	}
	if f.stored == nil {
		f.stored = map[string]*item.EncryptedCollectionItem{}
	}
	for _, it := range items {
		cp := *it
		f.stored[it.UID] = &cp
		f.appendRevision(it)
	}
	return nil
}

// appendRevision snapshots the item's current revision as the pseudo-item
// shape ItemRevisions serves: etag = the revision's own uid.
func (f *fakeBackend) appendRevision(it *item.EncryptedCollectionItem) {
	if f.revisions == nil {
		f.revisions = map[string][]*item.EncryptedCollectionItem{}
	}
	etag := it.Content.UID
	f.revisions[it.UID] = append(f.revisions[it.UID], &item.EncryptedCollectionItem{
		UID:           it.UID,
		Version:       it.Version,
		EncryptionKey: it.EncryptionKey,
		Content:       it.Content,
		Etag:          &etag,
	})
}

func (f *fakeBackend) ItemRevisions(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error) {
	history := f.revisions[itemUID]
	out := make([]*item.EncryptedCollectionItem, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
	}
	return out, syncmodel.IteratorPage{Done: true}, nil
}

func (f *fakeBackend) Transaction(ctx context.Context, serverURL, authToken, collectionUID, stoken string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	if stoken != f.currentStoken {
		return apperr.New(apperr.Conflict, "stoken advanced underneath this transaction")
	}
	if f.stored == nil {
		f.stored = map[string]*item.EncryptedCollectionItem{}
	}
	for _, it := range items {
		cp := *it
		f.stored[it.UID] = &cp
	}
	return nil
}

func newTestManager(t *testing.T) (Manager, *cryptomanager.CollectionCryptoManager, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{currentStoken: "stoken-1"}
	svc := accountsvc.New(zap.NewNop(), backend)
	_, err := svc.Signup(context.Background(), "alice", "a sufficiently long passphrase", "https://sync.example.com")
	require.NoError(t, err)

	key, err := cryptomanager.GenerateCollectionKey()
	require.NoError(t, err)
	collectionMgr, err := cryptomanager.NewCollectionCryptoManager(key)
	require.NoError(t, err)

	return New(zap.NewNop(), backend, svc), collectionMgr, backend
}

func TestBatchCreatesNewItemAndMarksSaved(t *testing.T) {
	mgr, collectionMgr, _ := newTestManager(t)
	ctx := context.Background()

	it, err := mgr.Create(ctx, collectionMgr, []byte("meta"), []byte("hello world"), false)
	require.NoError(t, err)
	require.NotNil(t, it.Etag)
	require.Nil(t, it.LastEtag)
	require.Equal(t, "New", it.State().String())

	require.NoError(t, mgr.Batch(ctx, "col-1", []*item.EncryptedCollectionItem{it}, nil))
	require.NotNil(t, it.LastEtag)
	require.Equal(t, *it.Etag, *it.LastEtag)
	require.Equal(t, "Clean", it.State().String())
}

func TestBatchLeavesItemsUnmarkedOnConflict(t *testing.T) {
	mgr, collectionMgr, backend := newTestManager(t)
	ctx := context.Background()
	backend.failBatch = true

	it, err := mgr.Create(ctx, collectionMgr, []byte("meta"), []byte("hello world"), false)
	require.NoError(t, err)

	err = mgr.Batch(ctx, "col-1", []*item.EncryptedCollectionItem{it}, nil)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
	require.Nil(t, it.LastEtag, "a conflicted batch must leave every item unmarked")
	require.Equal(t, "New", it.State().String())
}

func TestTransactionGatedOnStoken(t *testing.T) {
	mgr, collectionMgr, backend := newTestManager(t)
	ctx := context.Background()

	it, err := mgr.Create(ctx, collectionMgr, []byte("meta"), []byte("hello world"), false)
	require.NoError(t, err)

	err = mgr.Transaction(ctx, "col-1", "wrong-stoken", []*item.EncryptedCollectionItem{it}, nil)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
	require.Nil(t, it.LastEtag)

	require.NoError(t, mgr.Transaction(ctx, "col-1", backend.currentStoken, []*item.EncryptedCollectionItem{it}, nil))
	require.NotNil(t, it.LastEtag)
	require.Equal(t, *it.Etag, *it.LastEtag)
}

func TestItemRevisionsNewestFirstAndDecryptable(t *testing.T) {
	mgr, collectionMgr, _ := newTestManager(t)
	ctx := context.Background()

	it, err := mgr.Create(ctx, collectionMgr, []byte("meta"), []byte("first draft"), false)
	require.NoError(t, err)
	require.NoError(t, mgr.Batch(ctx, "col-1", []*item.EncryptedCollectionItem{it}, nil))

	require.NoError(t, envelope.SetContent(collectionMgr, it, []byte("second draft")))
	require.NoError(t, mgr.Batch(ctx, "col-1", []*item.EncryptedCollectionItem{it}, nil))

	require.NoError(t, envelope.SetContent(collectionMgr, it, []byte("third draft")))
	require.NoError(t, mgr.Batch(ctx, "col-1", []*item.EncryptedCollectionItem{it}, nil))

	revs, _, err := mgr.ItemRevisions(ctx, "col-1", it.UID, syncmodel.ListOptions{})
	require.NoError(t, err)
	require.Len(t, revs, 3)
	require.Equal(t, *it.Etag, *revs[0].Etag, "revisions are served newest-first")

	middle := revs[1]
	itemMgr, err := envelope.ItemCryptoManager(collectionMgr, middle)
	require.NoError(t, err)
	content, err := envelope.DecryptContent(itemMgr, middle.Content)
	require.NoError(t, err)
	require.Equal(t, []byte("second draft"), content)
}

func TestFetchSurfacesGoneSentinelOn404(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	it, err := mgr.Fetch(ctx, "col-1", "unknown-item", syncmodel.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, "unknown-item", it.UID)
	require.True(t, it.Gone)
	require.Equal(t, "Gone", it.State().String())
}
