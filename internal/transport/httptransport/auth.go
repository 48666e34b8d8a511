package httptransport

import (
	"context"

	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

type signupWire struct {
	Username           string `msgpack:"username"`
	Salt               []byte `msgpack:"salt"`
	KDFVersion         int    `msgpack:"kdf_version"`
	KDFMemory          uint32 `msgpack:"kdf_memory"`
	KDFIterations      uint32 `msgpack:"kdf_iterations"`
	KDFParallelism     uint8  `msgpack:"kdf_parallelism"`
	EncryptedContent   []byte `msgpack:"encrypted_content"`
	LoginPubkey        []byte `msgpack:"login_pubkey"`
	IdentitySignPubkey []byte `msgpack:"identity_sign_pubkey"`
	IdentityBoxPubkey  []byte `msgpack:"identity_box_pubkey"`
	VerificationID     string `msgpack:"verification_id"`
}

type authResponse struct {
	AuthToken string         `msgpack:"auth_token"`
	Profile   profileWire    `msgpack:"profile"`
}

type profileWire struct {
	Username           string `msgpack:"username"`
	Salt               []byte `msgpack:"salt"`
	KDFVersion         int    `msgpack:"kdf_version"`
	KDFMemory          uint32 `msgpack:"kdf_memory"`
	KDFIterations      uint32 `msgpack:"kdf_iterations"`
	KDFParallelism     uint8  `msgpack:"kdf_parallelism"`
	EncryptedContent   []byte `msgpack:"encrypted_content"`
	LoginPubkey        []byte `msgpack:"login_pubkey"`
	IdentitySignPubkey []byte `msgpack:"identity_sign_pubkey"`
	IdentityBoxPubkey  []byte `msgpack:"identity_box_pubkey"`
	VerificationID     string `msgpack:"verification_id"`
}

func (p profileWire) toDomain() account.Profile {
	return account.Profile{
		Username: p.Username,
		Salt:     p.Salt,
		KDFParams: kdfParamsFromWire(p.KDFVersion, p.KDFMemory, p.KDFIterations, p.KDFParallelism),
		EncryptedContent:   p.EncryptedContent,
		LoginPubkey:        p.LoginPubkey,
		IdentitySignPubkey: p.IdentitySignPubkey,
		IdentityBoxPubkey:  p.IdentityBoxPubkey,
		VerificationID:     p.VerificationID,
	}
}

func (c *Client) Signup(ctx context.Context, serverURL string, req transport.SignupRequest) (*account.Profile, string, error) {
	wire := signupWire{
		Username:           req.Username,
		Salt:               req.Salt,
		KDFVersion:         req.KDFParams.Version,
		KDFMemory:          req.KDFParams.Memory,
		KDFIterations:      req.KDFParams.Iterations,
		KDFParallelism:     req.KDFParams.Parallelism,
		EncryptedContent:   req.EncryptedContent,
		LoginPubkey:        req.LoginPubkey,
		IdentitySignPubkey: req.IdentitySignPubkey,
		IdentityBoxPubkey:  req.IdentityBoxPubkey,
		VerificationID:     req.VerificationID,
	}
	var resp authResponse
	url := join(serverURL, nil, "authentication", "signup")
	if err := c.do(ctx, "POST", url, "", wire, &resp); err != nil {
		return nil, "", err
	}
	profile := resp.Profile.toDomain()
	return &profile, resp.AuthToken, nil
}

type loginChallengeResponse struct {
	Salt           []byte `msgpack:"salt"`
	Challenge      []byte `msgpack:"challenge"`
	Version        int    `msgpack:"version"`
	KDFMemory      uint32 `msgpack:"kdf_memory"`
	KDFIterations  uint32 `msgpack:"kdf_iterations"`
	KDFParallelism uint8  `msgpack:"kdf_parallelism"`
}

func (c *Client) LoginChallenge(ctx context.Context, serverURL, username string) (*account.LoginChallenge, error) {
	q := listQuery(nil, nil, 0, false, "")
	q.Set("username", username)
	url := join(serverURL, q, "authentication", "login_challenge")
	var resp loginChallengeResponse
	if err := c.do(ctx, "GET", url, "", nil, &resp); err != nil {
		return nil, err
	}
	return &account.LoginChallenge{
		Salt:      resp.Salt,
		Challenge: resp.Challenge,
		Version:   resp.Version,
		KDFParams: kdfParamsFromWire(resp.Version, resp.KDFMemory, resp.KDFIterations, resp.KDFParallelism),
	}, nil
}

type signedChallengeWire struct {
	Username          string `msgpack:"username"`
	ChallengeResponse []byte `msgpack:"challenge_response"`
	Signature         []byte `msgpack:"signature"`
}

func (c *Client) Login(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (*account.Profile, string, error) {
	wire := signedChallengeWire{Username: username, ChallengeResponse: challengeResponse, Signature: signature}
	var resp authResponse
	url := join(serverURL, nil, "authentication", "login")
	if err := c.do(ctx, "POST", url, "", wire, &resp); err != nil {
		return nil, "", err
	}
	profile := resp.Profile.toDomain()
	return &profile, resp.AuthToken, nil
}

func (c *Client) FetchToken(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (string, error) {
	wire := signedChallengeWire{Username: username, ChallengeResponse: challengeResponse, Signature: signature}
	var resp struct {
		AuthToken string `msgpack:"auth_token"`
	}
	url := join(serverURL, nil, "authentication", "login")
	if err := c.do(ctx, "POST", url, "", wire, &resp); err != nil {
		return "", err
	}
	return resp.AuthToken, nil
}

func (c *Client) Logout(ctx context.Context, serverURL, authToken string) error {
	url := join(serverURL, nil, "authentication", "logout")
	return c.do(ctx, "POST", url, authToken, nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, serverURL, authToken string, req transport.ChangePasswordRequest) error {
	wire := struct {
		NewSalt             []byte `msgpack:"new_salt"`
		NewKDFVersion       int    `msgpack:"new_kdf_version"`
		NewKDFMemory        uint32 `msgpack:"new_kdf_memory"`
		NewKDFIterations    uint32 `msgpack:"new_kdf_iterations"`
		NewKDFParallelism   uint8  `msgpack:"new_kdf_parallelism"`
		NewEncryptedContent []byte `msgpack:"new_encrypted_content"`
		NewLoginPubkey      []byte `msgpack:"new_login_pubkey"`
		Signature           []byte `msgpack:"signature"`
		ChallengeResponse   []byte `msgpack:"challenge_response"`
	}{
		NewSalt:             req.NewSalt,
		NewKDFVersion:       req.NewKDFParams.Version,
		NewKDFMemory:        req.NewKDFParams.Memory,
		NewKDFIterations:    req.NewKDFParams.Iterations,
		NewKDFParallelism:   req.NewKDFParams.Parallelism,
		NewEncryptedContent: req.NewEncryptedContent,
		NewLoginPubkey:      req.NewLoginPubkey,
		Signature:           req.Signature,
		ChallengeResponse:   req.ChallengeResponse,
	}
	url := join(serverURL, nil, "authentication", "change_password")
	return c.do(ctx, "POST", url, authToken, wire, nil)
}

func (c *Client) FetchUserProfile(ctx context.Context, serverURL, authToken, username string) (*account.Profile, error) {
	url := join(serverURL, nil, "user", username)
	var resp profileWire
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, err
	}
	profile := resp.toDomain()
	return &profile, nil
}

func kdfParamsFromWire(version int, memory, iterations uint32, parallelism uint8) keys.KDFParams {
	return keys.KDFParams{
		Version:     version,
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: parallelism,
	}
}
