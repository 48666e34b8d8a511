package invitationmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// fakeBackend is a multi-user in-memory stand-in for transport.Backend,
// playing the server's half of signup, profile lookup, and the invitation
// endpoints. Embedding the nil interface lets it satisfy Backend without
// implementing every method these tests never call.
type fakeBackend struct {
	transport.Backend

	profiles map[string]account.Profile
	inbox    []*invitation.SignedInvitation

	acceptedUID string
	resealedKey []byte
	rejectedUID string
}

func (f *fakeBackend) Signup(ctx context.Context, serverURL string, req transport.SignupRequest) (*account.Profile, string, error) {
	if f.profiles == nil {
		f.profiles = map[string]account.Profile{}
	}
	profile := account.Profile{
		Username:           req.Username,
		Salt:               req.Salt,
		KDFParams:          req.KDFParams,
		EncryptedContent:   req.EncryptedContent,
		LoginPubkey:        req.LoginPubkey,
		IdentitySignPubkey: req.IdentitySignPubkey,
		IdentityBoxPubkey:  req.IdentityBoxPubkey,
		VerificationID:     req.VerificationID,
	}
	f.profiles[req.Username] = profile
	out := profile
	return &out, "token-" + req.Username, nil
}

func (f *fakeBackend) FetchUserProfile(ctx context.Context, serverURL, authToken, username string) (*account.Profile, error) {
	profile, ok := f.profiles[username]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "unknown user")
	}
	out := profile
	return &out, nil
}

func (f *fakeBackend) CreateInvitation(ctx context.Context, serverURL, authToken string, inv *invitation.SignedInvitation) error {
	f.inbox = append(f.inbox, inv)
	return nil
}

func (f *fakeBackend) ListIncomingInvitations(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error) {
	return f.inbox, syncmodel.IteratorPage{Done: true}, nil
}

func (f *fakeBackend) AcceptInvitation(ctx context.Context, serverURL, authToken, invitationUID string, resealedKey []byte, collectionType []byte) error {
	f.acceptedUID = invitationUID
	f.resealedKey = resealedKey
	return nil
}

func (f *fakeBackend) RejectInvitation(ctx context.Context, serverURL, authToken, invitationUID string) error {
	f.rejectedUID = invitationUID
	return nil
}

func signupUser(t *testing.T, backend *fakeBackend, username string) accountsvc.Service {
	t.Helper()
	svc := accountsvc.New(zap.NewNop(), backend)
	_, err := svc.Signup(context.Background(), username, username+" passphrase with enough entropy", "https://sync.example.com")
	require.NoError(t, err)
	return svc
}

func TestInviteAcceptSharesTheCollectionKey(t *testing.T) {
	backend := &fakeBackend{}
	ctx := context.Background()

	alice := signupUser(t, backend, "alice")
	bob := signupUser(t, backend, "bob")

	aliceAccountMgr, err := alice.AccountCryptoManager()
	require.NoError(t, err)
	content := []byte("hello from alice")
	col, err := envelope.CreateCollection(aliceAccountMgr, "notes", []byte(`{"name":"Notes"}`), content)
	require.NoError(t, err)

	aliceMgr := New(zap.NewNop(), backend, alice)
	bobSignPubkey := backend.profiles["bob"].IdentitySignPubkey
	require.NoError(t, aliceMgr.Invite(ctx, col, "bob", bobSignPubkey, keys.AccessLevelReadWrite))

	bobMgr := New(zap.NewNop(), backend, bob)
	incoming, _, err := bobMgr.ListIncoming(ctx, syncmodel.ListOptions{})
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	inv := incoming[0]
	require.Equal(t, "alice", inv.FromUsername)
	require.Equal(t, "bob", inv.ToUsername)
	require.Equal(t, keys.AccessLevelReadWrite, inv.AccessLevel)

	require.NoError(t, bobMgr.Accept(ctx, inv))
	require.Equal(t, inv.UID, backend.acceptedUID)
	require.NotEmpty(t, backend.resealedKey)

	// The accepted, re-sealed key must open under bob's own
	// AccountCryptoManager and decrypt alice's collection content.
	bobAccountMgr, err := bob.AccountCryptoManager()
	require.NoError(t, err)
	collectionKey, err := bobAccountMgr.OpenCollectionKey(backend.resealedKey)
	require.NoError(t, err)
	collectionMgr, err := envelope.GetCryptoManagerFromKey(collectionKey)
	require.NoError(t, err)
	itemMgr, err := envelope.ItemCryptoManager(collectionMgr, col.Item)
	require.NoError(t, err)
	decrypted, err := envelope.DecryptContent(itemMgr, col.Item.Content)
	require.NoError(t, err)
	require.Equal(t, content, decrypted)
}

func TestInviteFailsOnStaleRecipientPubkey(t *testing.T) {
	backend := &fakeBackend{}
	ctx := context.Background()

	alice := signupUser(t, backend, "alice")
	signupUser(t, backend, "bob")

	aliceAccountMgr, err := alice.AccountCryptoManager()
	require.NoError(t, err)
	col, err := envelope.CreateCollection(aliceAccountMgr, "notes", []byte("meta"), []byte("content"))
	require.NoError(t, err)

	stale := append([]byte(nil), backend.profiles["bob"].IdentitySignPubkey...)
	stale[0] ^= 0xff

	aliceMgr := New(zap.NewNop(), backend, alice)
	err = aliceMgr.Invite(ctx, col, "bob", stale, keys.AccessLevelReadOnly)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Programming))
	require.Empty(t, backend.inbox, "no invitation may be posted on a pubkey mismatch")
}

func TestAcceptFailsOnTamperedInvitation(t *testing.T) {
	backend := &fakeBackend{}
	ctx := context.Background()

	alice := signupUser(t, backend, "alice")
	bob := signupUser(t, backend, "bob")

	aliceAccountMgr, err := alice.AccountCryptoManager()
	require.NoError(t, err)
	col, err := envelope.CreateCollection(aliceAccountMgr, "notes", []byte("meta"), []byte("content"))
	require.NoError(t, err)

	aliceMgr := New(zap.NewNop(), backend, alice)
	require.NoError(t, aliceMgr.Invite(ctx, col, "bob", backend.profiles["bob"].IdentitySignPubkey, keys.AccessLevelReadWrite))

	bobMgr := New(zap.NewNop(), backend, bob)
	incoming, _, err := bobMgr.ListIncoming(ctx, syncmodel.ListOptions{})
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	inv := incoming[0]
	inv.SignedEncryptionKey[len(inv.SignedEncryptionKey)/2] ^= 0x01

	err = bobMgr.Accept(ctx, inv)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Integrity))
	require.Empty(t, backend.acceptedUID, "a tampered invitation must never be accepted server-side")
}

func TestRejectDeletesTheInvitation(t *testing.T) {
	backend := &fakeBackend{}

	bob := signupUser(t, backend, "bob")
	bobMgr := New(zap.NewNop(), backend, bob)

	inv := &invitation.SignedInvitation{UID: "inv-1"}
	require.NoError(t, bobMgr.Reject(context.Background(), inv))
	require.Equal(t, "inv-1", backend.rejectedUID)
}
