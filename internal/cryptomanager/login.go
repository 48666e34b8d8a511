package cryptomanager

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

func ed25519KeyPairFromSeed(seed []byte) *cryptoutil.Ed25519KeyPair {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &cryptoutil.Ed25519KeyPair{Public: pub, Private: priv}
}

// LoginCryptoManager signs the login challenge response. It never touches
// the main key directly — only the Ed25519 pair MainCryptoManager derived
// from it.
type LoginCryptoManager struct {
	keyPair *cryptoutil.Ed25519KeyPair
}

// PublicKey returns the Ed25519 public key the server verifies challenge
// signatures against; published as Profile.LoginPubkey on signup.
func (l *LoginCryptoManager) PublicKey() ed25519.PublicKey {
	return l.keyPair.Public
}

// ChallengeResponse is the canonical JSON body
// {username, challenge, host, action:"login"} signed for both login and
// fetchToken.
type ChallengeResponse struct {
	Username  string `json:"username"`
	Challenge string `json:"challenge"`
	Host      string `json:"host"`
	Action    string `json:"action"`
}

// SignChallenge canonically encodes resp and signs it with the login key.
func (l *LoginCryptoManager) SignChallenge(resp ChallengeResponse) (signature []byte, encoded []byte, err error) {
	encoded, err = json.Marshal(resp)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Programming, "encode challenge response", err)
	}
	return cryptoutil.Sign(l.keyPair.Private, encoded), encoded, nil
}

// NewChallengeResponse builds the canonical login/fetchToken payload: the
// username, the server-issued challenge (base64, passed through as given),
// the host extracted from the account's serverUrl, and the fixed action.
func NewChallengeResponse(username, challengeB64, host string) ChallengeResponse {
	return ChallengeResponse{
		Username:  username,
		Challenge: challengeB64,
		Host:      host,
		Action:    "login",
	}
}
