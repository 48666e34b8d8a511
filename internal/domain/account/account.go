// Package account holds the Account runtime state and its persisted form:
// the Profile's Salt, KDFParams, EncryptedContent, LoginPubkey,
// IdentitySignPubkey, IdentityBoxPubkey, and VerificationID.
package account

import "github.com/mapleapps-ca/vaultsync/internal/domain/keys"

// LoginChallenge is the server's response to a login handshake request:
// a salt to re-derive the main key against, a nonce to sign, and the KDF
// version it was issued under.
type LoginChallenge struct {
	Salt      []byte
	Challenge []byte
	Version   int
	KDFParams keys.KDFParams
}

// Profile is the server-returned login profile, echoed back on
// signup/login/changePassword.
type Profile struct {
	Username string `cbor:"username"`
	Salt     []byte `cbor:"salt"`

	// KDFParams records the Argon2id tuning EncryptedContent was sealed
	// under; Account flags an upgrade when this falls below
	// cryptoutil.DefaultKDFParams on a successful login.
	KDFParams keys.KDFParams `cbor:"kdf_params"`

	// EncryptedContent is AEAD-sealed accountKey ‖ identityPrivateKey
	// under the main key.
	EncryptedContent []byte `cbor:"encrypted_content"`

	// LoginPubkey is the Ed25519 public half of the login challenge
	// signing key; the server holds this to verify challenge responses.
	LoginPubkey []byte `cbor:"login_pubkey"`

	// IdentitySignPubkey / IdentityBoxPubkey are the public halves of the
	// identity key pair (Ed25519 signing, X25519 box) other users look up
	// via fetchUserProfile to address invitations.
	IdentitySignPubkey []byte `cbor:"identity_sign_pubkey"`
	IdentityBoxPubkey  []byte `cbor:"identity_box_pubkey"`

	VerificationID string `cbor:"verification_id"`
}

// State is the Account's in-memory runtime state. MainKey is the 32-byte
// root secret; Version -1 marks a logged-out account on which all
// operations must fail loudly.
type State struct {
	Version   int
	MainKey   []byte
	User      Profile
	ServerURL string
	AuthToken string
}

// LoggedOutVersion is the sentinel Version logout sets so that a reused
// Account object fails every subsequent operation instead of silently
// acting on zeroed key material.
const LoggedOutVersion = -1

// IsLoggedOut reports whether the account has been torn down by logout.
func (s *State) IsLoggedOut() bool {
	return s.Version == LoggedOutVersion
}

// Persisted is the {version, key, user, serverUrl, authToken} shape
// save()/load() exchange.
type Persisted struct {
	Version     int     `cbor:"version"`
	MainKeyB64  string  `cbor:"key"`
	User        Profile `cbor:"user"`
	ServerURL   string  `cbor:"server_url"`
	AuthToken   string  `cbor:"auth_token"`
}
