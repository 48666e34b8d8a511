// Package accountsvc implements the Account lifecycle:
// signup/login/fetchToken/logout/changePassword plus save/load persistence
// and cached derived crypto managers, built around a zap.Logger.Named
// constructor and use-case delegation, generalized from OAuth tokens to a
// mainKey/challenge-signature handshake.
package accountsvc

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// Service is the Account lifecycle boundary: signup through
// changePassword, plus the cached-manager accessors Managers-layer code
// uses to reach the key hierarchy.
type Service interface {
	Signup(ctx context.Context, username, password, serverURL string) (*account.Profile, error)
	Login(ctx context.Context, username, password, serverURL string) (*account.Profile, error)
	FetchToken(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, newPassword string) error

	Save() ([]byte, error)
	Load(data []byte) error

	IsLoggedIn() bool
	AuthToken() string
	ServerURL() string
	Profile() account.Profile

	AccountCryptoManager() (*cryptomanager.AccountCryptoManager, error)
	IdentityCryptoManager() (*cryptomanager.IdentityCryptoManager, error)

	// NeedsKDFUpgrade reports whether the session's current KDFParams fall
	// below cryptoutil.DefaultKDFParams, per the KDF-upgrade-tracking
	// supplemental feature: callers should prompt for changePassword to
	// re-derive mainKey under the stronger profile.
	NeedsKDFUpgrade() bool
}

type service struct {
	logger  *zap.Logger
	backend transport.Backend

	mu    sync.Mutex
	state account.State

	// cached, invalidated on logout/changePassword
	mainMgr     *cryptomanager.MainCryptoManager
	accountMgr  *cryptomanager.AccountCryptoManager
	identityMgr *cryptomanager.IdentityCryptoManager
}

// New constructs an Account service with no active session; call Signup,
// Login, or Load before any other operation.
func New(logger *zap.Logger, backend transport.Backend) Service {
	logger = logger.Named("accountsvc")
	return &service{
		logger:  logger,
		backend: backend,
		state:   account.State{Version: account.LoggedOutVersion},
	}
}

func hostFromServerURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", apperr.Wrap(apperr.Programming, "parse server url", err)
	}
	return u.Host, nil
}

func toDomainKDFParams(p cryptoutil.KDFParams) keys.KDFParams {
	return keys.KDFParams{Version: p.Version, Memory: p.Memory, Iterations: p.Iterations, Parallelism: p.Parallelism}
}

func fromDomainKDFParams(p keys.KDFParams) cryptoutil.KDFParams {
	return cryptoutil.KDFParams{Version: p.Version, Memory: p.Memory, Iterations: p.Iterations, Parallelism: p.Parallelism}
}

// Signup derives a fresh mainKey from a random salt, generates the account
// and identity key pairs, seals them under the main key, and registers the
// account with the server.
func (s *service) Signup(ctx context.Context, username, password, serverURL string) (*account.Profile, error) {
	salt, err := cryptoutil.GenerateSalt()
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate salt", err)
	}
	kdfParams := cryptoutil.DefaultKDFParams()
	mainKeyBytes, err := cryptoutil.DeriveMainKey(password, salt, kdfParams)
	if err != nil {
		return nil, err
	}
	mainMgr, err := cryptomanager.NewMainCryptoManager(mainKeyBytes, kdfParams.Version)
	if err != nil {
		return nil, err
	}

	accountKey, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "generate account key", err)
	}
	identityPrivateBlob, boxPub, signPub, err := cryptomanager.GenerateIdentityKeyPair()
	if err != nil {
		return nil, err
	}

	encryptedContent, err := mainMgr.SealAccountContent(accountKey, identityPrivateBlob)
	if err != nil {
		return nil, err
	}

	loginMgr, err := mainMgr.DeriveLoginCryptoManager()
	if err != nil {
		return nil, err
	}

	verificationID, err := cryptomanager.VerificationFingerprint(signPub)
	if err != nil {
		return nil, err
	}

	req := transport.SignupRequest{
		Username:           username,
		Salt:               salt,
		KDFParams:          toDomainKDFParams(kdfParams),
		EncryptedContent:   encryptedContent,
		LoginPubkey:        loginMgr.PublicKey(),
		IdentitySignPubkey: signPub,
		IdentityBoxPubkey:  boxPub,
		VerificationID:     verificationID,
	}
	profile, authToken, err := s.backend.Signup(ctx, serverURL, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = account.State{Version: kdfParams.Version, MainKey: mainKeyBytes, User: *profile, ServerURL: serverURL, AuthToken: authToken}
	s.mainMgr = mainMgr
	s.accountMgr = nil
	s.identityMgr = nil
	s.logger.Info("signup completed", zap.String("username", username))
	return profile, nil
}

// Login fetches a challenge, re-derives mainKey from the returned salt,
// signs the challenge with the derived login key, and exchanges the
// signature for an authToken. Fails with UnauthorizedError on bad
// credentials (via the backend's 401 → apperr.Unauthorized mapping).
func (s *service) Login(ctx context.Context, username, password, serverURL string) (*account.Profile, error) {
	challenge, err := s.backend.LoginChallenge(ctx, serverURL, username)
	if err != nil {
		return nil, err
	}
	kdfParams := fromDomainKDFParams(challenge.KDFParams)
	mainKeyBytes, err := cryptoutil.DeriveMainKey(password, challenge.Salt, kdfParams)
	if err != nil {
		return nil, err
	}
	mainMgr, err := cryptomanager.NewMainCryptoManager(mainKeyBytes, challenge.Version)
	if err != nil {
		return nil, err
	}
	loginMgr, err := mainMgr.DeriveLoginCryptoManager()
	if err != nil {
		return nil, err
	}

	host, err := hostFromServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	resp := cryptomanager.NewChallengeResponse(username, base64.StdEncoding.EncodeToString(challenge.Challenge), host)
	signature, encoded, err := loginMgr.SignChallenge(resp)
	if err != nil {
		return nil, err
	}

	profile, authToken, err := s.backend.Login(ctx, serverURL, username, encoded, signature)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = account.State{Version: challenge.Version, MainKey: mainKeyBytes, User: *profile, ServerURL: serverURL, AuthToken: authToken}
	s.mainMgr = mainMgr
	s.accountMgr = nil
	s.identityMgr = nil
	s.logger.Info("login completed", zap.String("username", username))
	if !fromDomainKDFParams(profile.KDFParams).MeetsMinimum() {
		s.logger.Warn("stored KDF parameters are below the current minimum; call changePassword to upgrade",
			zap.String("username", username))
	}
	return profile, nil
}

// FetchToken re-runs the challenge handshake with the already-derived
// mainKey to refresh authToken, without prompting for a password.
func (s *service) FetchToken(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IsLoggedOut() {
		s.mu.Unlock()
		return apperr.New(apperr.Programming, "fetchToken called on a logged-out account")
	}
	username := s.state.User.Username
	serverURL := s.state.ServerURL
	mainMgr := s.mainMgr
	s.mu.Unlock()

	challenge, err := s.backend.LoginChallenge(ctx, serverURL, username)
	if err != nil {
		return err
	}
	loginMgr, err := mainMgr.DeriveLoginCryptoManager()
	if err != nil {
		return err
	}
	host, err := hostFromServerURL(serverURL)
	if err != nil {
		return err
	}
	resp := cryptomanager.NewChallengeResponse(username, base64.StdEncoding.EncodeToString(challenge.Challenge), host)
	signature, encoded, err := loginMgr.SignChallenge(resp)
	if err != nil {
		return err
	}
	authToken, err := s.backend.FetchToken(ctx, serverURL, username, encoded, signature)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.AuthToken = authToken
	s.mu.Unlock()
	return nil
}

// Logout best-effort revokes the token server-side, then zeroes mainKey and
// every derived manager and marks the session logged out so any reuse of
// this Service fails loudly instead of silently operating on stale keys.
func (s *service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLoggedOut() {
		return nil
	}
	if err := s.backend.Logout(ctx, s.state.ServerURL, s.state.AuthToken); err != nil {
		s.logger.Warn("server-side logout failed, proceeding with local teardown", zap.Error(err))
	}
	s.invalidateLocked()
	return nil
}

func (s *service) invalidateLocked() {
	if s.mainMgr != nil {
		s.mainMgr.Zero()
	}
	if s.identityMgr != nil {
		s.identityMgr.Zero()
	}
	if s.accountMgr != nil {
		s.accountMgr.Zero()
	}
	s.mainMgr = nil
	s.accountMgr = nil
	s.identityMgr = nil
	s.state = account.State{Version: account.LoggedOutVersion}
}

// ChangePassword fetches a fresh challenge to obtain a new salt, decrypts
// the current encryptedContent, re-derives mainKey under the new password,
// re-seals the account content, and commits on server acceptance.
func (s *service) ChangePassword(ctx context.Context, newPassword string) error {
	s.mu.Lock()
	if s.state.IsLoggedOut() {
		s.mu.Unlock()
		return apperr.New(apperr.Programming, "changePassword called on a logged-out account")
	}
	username := s.state.User.Username
	serverURL := s.state.ServerURL
	authToken := s.state.AuthToken
	oldEncryptedContent := s.state.User.EncryptedContent
	oldMainMgr := s.mainMgr
	s.mu.Unlock()

	challenge, err := s.backend.LoginChallenge(ctx, serverURL, username)
	if err != nil {
		return err
	}

	accountKey, identityPrivateBlob, err := oldMainMgr.OpenAccountContent(oldEncryptedContent, identityBlobLen())
	if err != nil {
		return err
	}

	newSalt := challenge.Salt
	newKDFParams := cryptoutil.DefaultKDFParams()
	newMainKeyBytes, err := cryptoutil.DeriveMainKey(newPassword, newSalt, newKDFParams)
	if err != nil {
		return err
	}
	newMainMgr, err := cryptomanager.NewMainCryptoManager(newMainKeyBytes, newKDFParams.Version)
	if err != nil {
		return err
	}
	newEncryptedContent, err := newMainMgr.SealAccountContent(accountKey, identityPrivateBlob)
	if err != nil {
		return err
	}
	newLoginMgr, err := newMainMgr.DeriveLoginCryptoManager()
	if err != nil {
		return err
	}

	host, err := hostFromServerURL(serverURL)
	if err != nil {
		return err
	}
	resp := cryptomanager.NewChallengeResponse(username, base64.StdEncoding.EncodeToString(challenge.Challenge), host)
	signature, encoded, err := newLoginMgr.SignChallenge(resp)
	if err != nil {
		return err
	}

	req := transport.ChangePasswordRequest{
		NewSalt:             newSalt,
		NewKDFParams:         toDomainKDFParams(newKDFParams),
		NewEncryptedContent:  newEncryptedContent,
		NewLoginPubkey:       newLoginMgr.PublicKey(),
		Signature:            signature,
		ChallengeResponse:    encoded,
	}
	if err := s.backend.ChangePassword(ctx, serverURL, authToken, req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	oldMainMgr.Zero()
	if s.identityMgr != nil {
		s.identityMgr.Zero()
	}
	s.state.Version = newKDFParams.Version
	s.state.MainKey = newMainKeyBytes
	s.state.User.Salt = newSalt
	s.state.User.KDFParams = toDomainKDFParams(newKDFParams)
	s.state.User.EncryptedContent = newEncryptedContent
	s.state.User.LoginPubkey = newLoginMgr.PublicKey()
	s.mainMgr = newMainMgr
	s.accountMgr = nil
	s.identityMgr = nil
	s.logger.Info("password changed", zap.String("username", username))
	return nil
}

func identityBlobLen() int {
	return cryptoutil.X25519KeySize + ed25519.PrivateKeySize
}

// Save serializes the (version, mainKey-base64, user, serverUrl, authToken)
// persisted-state shape.
func (s *service) Save() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLoggedOut() {
		return nil, apperr.New(apperr.Programming, "save called on a logged-out account")
	}
	persisted := account.Persisted{
		Version:    s.state.Version,
		MainKeyB64: base64.StdEncoding.EncodeToString(s.state.MainKey),
		User:       s.state.User,
		ServerURL:  s.state.ServerURL,
		AuthToken:  s.state.AuthToken,
	}
	return cborMarshal(persisted)
}

// Load restores a previously Saved session and re-derives the cached
// managers lazily on first use.
func (s *service) Load(data []byte) error {
	var persisted account.Persisted
	if err := cborUnmarshal(data, &persisted); err != nil {
		return apperr.Wrap(apperr.Programming, "decode persisted session", err)
	}
	mainKeyBytes, err := base64.StdEncoding.DecodeString(persisted.MainKeyB64)
	if err != nil {
		return apperr.Wrap(apperr.Programming, "decode persisted main key", err)
	}
	mainMgr, err := cryptomanager.NewMainCryptoManager(mainKeyBytes, persisted.Version)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = account.State{
		Version:   persisted.Version,
		MainKey:   mainKeyBytes,
		User:      persisted.User,
		ServerURL: persisted.ServerURL,
		AuthToken: persisted.AuthToken,
	}
	s.mainMgr = mainMgr
	s.accountMgr = nil
	s.identityMgr = nil
	return nil
}

func (s *service) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.IsLoggedOut()
}

func (s *service) AuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AuthToken
}

func (s *service) ServerURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ServerURL
}

func (s *service) Profile() account.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User
}

// NeedsKDFUpgrade reports whether the profile's recorded KDFParams no
// longer meet cryptoutil.DefaultKDFParams — e.g. the account was created
// under an older, weaker Argon2id profile. It never mutates state; the
// caller decides whether and when to prompt for changePassword.
func (s *service) NeedsKDFUpgrade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLoggedOut() {
		return false
	}
	return !fromDomainKDFParams(s.state.User.KDFParams).MeetsMinimum()
}

// AccountCryptoManager decrypts encryptedContent on demand and caches the
// result for the account's lifetime.
func (s *service) AccountCryptoManager() (*cryptomanager.AccountCryptoManager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLoggedOut() {
		return nil, apperr.New(apperr.Programming, "account crypto manager requested on a logged-out account")
	}
	if s.accountMgr != nil {
		return s.accountMgr, nil
	}
	accountKey, identityPrivateBlob, err := s.mainMgr.OpenAccountContent(s.state.User.EncryptedContent, identityBlobLen())
	if err != nil {
		return nil, err
	}
	accountMgr, err := s.mainMgr.AccountCryptoManager(accountKey)
	if err != nil {
		return nil, err
	}
	identityMgr, err := s.mainMgr.IdentityCryptoManager(identityPrivateBlob, s.state.User.IdentityBoxPubkey, s.state.User.IdentitySignPubkey)
	if err != nil {
		return nil, err
	}
	s.accountMgr = accountMgr
	s.identityMgr = identityMgr
	return accountMgr, nil
}

// IdentityCryptoManager is AccountCryptoManager's counterpart, sharing the
// same decrypt-once cache as AccountCryptoManager.
func (s *service) IdentityCryptoManager() (*cryptomanager.IdentityCryptoManager, error) {
	if _, err := s.AccountCryptoManager(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityMgr, nil
}
