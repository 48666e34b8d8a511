package accountsvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// fakeBackend is a minimal in-memory stand-in for transport.Backend that
// plays the server's half of the signup/login/changePassword handshakes.
// Embedding the nil interface lets it satisfy Backend without implementing
// every method this test never calls.
type fakeBackend struct {
	transport.Backend

	username string
	profile  account.Profile
	token    string
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

func (f *fakeBackend) LoginChallenge(ctx context.Context, serverURL, username string) (*account.LoginChallenge, error) {
	if username != f.username {
		return nil, apperr.New(apperr.NotFound, "unknown user")
	}
	return &account.LoginChallenge{
		Salt:      f.profile.Salt,
		Challenge: []byte("server-nonce"),
		Version:   f.profile.KDFParams.Version,
		KDFParams: f.profile.KDFParams,
	}, nil
}

func (f *fakeBackend) verify(username string, challengeResponse, signature []byte) error {
	if username != f.username {
		return apperr.New(apperr.Unauthorized, "unknown user")
	}
	if !cryptoutil.Verify(f.profile.LoginPubkey, challengeResponse, signature) {
		return apperr.New(apperr.Unauthorized, "bad signature")
	}
	var decoded struct {
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(challengeResponse, &decoded); err != nil {
		return apperr.Wrap(apperr.Unauthorized, "decode challenge response", err)
	}
	return nil
}

func (f *fakeBackend) Login(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (*account.Profile, string, error) {
	if err := f.verify(username, challengeResponse, signature); err != nil {
		return nil, "", err
	}
	profile := f.profile
	return &profile, f.token, nil
}

func (f *fakeBackend) FetchToken(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (string, error) {
	if err := f.verify(username, challengeResponse, signature); err != nil {
		return "", err
	}
	return f.token, nil
}

func (f *fakeBackend) Logout(ctx context.Context, serverURL, authToken string) error {
	return nil
}

func (f *fakeBackend) ChangePassword(ctx context.Context, serverURL, authToken string, req transport.ChangePasswordRequest) error {
	if !cryptoutil.Verify(req.NewLoginPubkey, req.ChallengeResponse, req.Signature) {
		return apperr.New(apperr.Unauthorized, "bad signature")
	}
	f.profile.Salt = req.NewSalt
	f.profile.KDFParams = req.NewKDFParams
	f.profile.EncryptedContent = req.NewEncryptedContent
	f.profile.LoginPubkey = req.NewLoginPubkey
	return nil
}

func newTestService() (Service, *fakeBackend) {
	backend := &fakeBackend{}
	return New(zap.NewNop(), backend), backend
}

func TestSignupThenLoginWithWrongPasswordFails(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "correct horse battery staple", "https://sync.example.com")
	require.NoError(t, err)
	require.True(t, svc.IsLoggedIn())

	other := New(zap.NewNop(), backend)
	profile, err := other.Login(ctx, "alice", "wrong password", "https://sync.example.com")
	require.Error(t, err)
	require.Nil(t, profile)
}

func TestFullAccountLifecycle(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "bob", "hunter2-but-longer", "https://sync.example.com")
	require.NoError(t, err)

	require.NoError(t, svc.FetchToken(ctx))
	require.NotEmpty(t, svc.AuthToken())

	accountMgr, err := svc.AccountCryptoManager()
	require.NoError(t, err)
	require.NotNil(t, accountMgr)

	identityMgr, err := svc.IdentityCryptoManager()
	require.NoError(t, err)
	require.NotNil(t, identityMgr)

	require.NoError(t, svc.ChangePassword(ctx, "a brand new passphrase"))
	require.Equal(t, backend.profile.EncryptedContent, svc.Profile().EncryptedContent)

	// After changePassword the cached managers must be invalidated and
	// re-derivable from the new encryptedContent.
	accountMgr2, err := svc.AccountCryptoManager()
	require.NoError(t, err)
	require.NotNil(t, accountMgr2)

	require.NoError(t, svc.Logout(ctx))
	require.False(t, svc.IsLoggedIn())

	_, err = svc.AccountCryptoManager()
	require.Error(t, err)
}

func TestLoginWithWrongUsernameFails(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, "carol", "another long passphrase", "https://sync.example.com")
	require.NoError(t, err)
	backend.username = "carol"

	other, _ := newTestService()
	_, err = other.Login(ctx, "nobody", "whatever", "https://sync.example.com")
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, "dave", "yet another long passphrase", "https://sync.example.com")
	require.NoError(t, err)

	data, err := svc.Save()
	require.NoError(t, err)

	restored := New(zap.NewNop(), &fakeBackend{}).(Service)
	require.NoError(t, restored.Load(data))
	require.Equal(t, svc.Profile().Username, restored.Profile().Username)
	require.Equal(t, svc.AuthToken(), restored.AuthToken())

	mgr, err := restored.AccountCryptoManager()
	require.NoError(t, err)
	require.NotNil(t, mgr)
}

func TestNeedsKDFUpgrade(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, "erin", "a reasonably long passphrase", "https://sync.example.com")
	require.NoError(t, err)
	require.False(t, svc.NeedsKDFUpgrade(), "a freshly signed-up account uses cryptoutil.DefaultKDFParams")

	impl := svc.(*service)
	impl.mu.Lock()
	impl.state.User.KDFParams = keys.KDFParams{Version: 1, Memory: 8 * 1024, Iterations: 1, Parallelism: 1}
	impl.mu.Unlock()
	require.True(t, svc.NeedsKDFUpgrade())

	require.NoError(t, svc.Logout(ctx))
	require.False(t, svc.NeedsKDFUpgrade(), "a logged-out service has nothing to upgrade")
}
