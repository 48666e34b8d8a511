// Package transport defines the Backend port: the client's only dependency
// on the network. Every Managers-layer operation that must suspend does so
// by calling through this interface; the core never imports net/http
// directly.
package transport

import (
	"context"

	"github.com/mapleapps-ca/vaultsync/internal/domain/account"
	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
)

// Backend is the external collaborator: an HTTPS/msgpack transport scoped
// under <serverUrl>/api/v1/. Every method is a suspension point and must
// be cancellable via ctx.
type Backend interface {
	// Authentication

	Signup(ctx context.Context, serverURL string, req SignupRequest) (*account.Profile, string, error)
	LoginChallenge(ctx context.Context, serverURL, username string) (*account.LoginChallenge, error)
	Login(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (*account.Profile, string, error)
	FetchToken(ctx context.Context, serverURL, username string, challengeResponse, signature []byte) (string, error)
	Logout(ctx context.Context, serverURL, authToken string) error
	ChangePassword(ctx context.Context, serverURL, authToken string, req ChangePasswordRequest) error
	FetchUserProfile(ctx context.Context, serverURL, authToken, username string) (*account.Profile, error)

	// Collections

	CreateCollection(ctx context.Context, serverURL, authToken string, c *collection.EncryptedCollection) (*collection.EncryptedCollection, error)
	UpdateCollection(ctx context.Context, serverURL, authToken string, c *collection.EncryptedCollection, useStoken bool) error
	FetchCollection(ctx context.Context, serverURL, authToken, uid string, opts syncmodel.ListOptions) (*collection.EncryptedCollection, error)
	ListCollections(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*collection.EncryptedCollection, syncmodel.IteratorPage, error)

	// Items

	FetchItem(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) (*item.EncryptedCollectionItem, error)
	ListItems(ctx context.Context, serverURL, authToken, collectionUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error)
	Batch(ctx context.Context, serverURL, authToken, collectionUID string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error
	Transaction(ctx context.Context, serverURL, authToken, collectionUID, stoken string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error
	FetchUpdates(ctx context.Context, serverURL, authToken, collectionUID string, refs []syncmodel.ItemRef, opts syncmodel.FetchUpdatesOptions) ([]syncmodel.UpdateResult, error)
	ItemRevisions(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error)

	// Chunks

	UploadChunk(ctx context.Context, serverURL, authToken, collectionUID, itemUID, chunkUID string, ciphertext []byte) error
	DownloadChunk(ctx context.Context, serverURL, authToken, collectionUID, itemUID, chunkUID string) ([]byte, error)

	// Invitations

	ListIncomingInvitations(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error)
	ListOutgoingInvitations(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error)
	CreateInvitation(ctx context.Context, serverURL, authToken string, inv *invitation.SignedInvitation) error
	AcceptInvitation(ctx context.Context, serverURL, authToken, invitationUID string, resealedKey []byte, collectionType []byte) error
	RejectInvitation(ctx context.Context, serverURL, authToken, invitationUID string) error

	// Members

	ListMembers(ctx context.Context, serverURL, authToken, collectionUID string, opts syncmodel.ListOptions) ([]Member, error)
	RemoveMember(ctx context.Context, serverURL, authToken, collectionUID, username string) error
	ModifyMemberAccessLevel(ctx context.Context, serverURL, authToken, collectionUID, username string, level keys.AccessLevel) error
	LeaveCollection(ctx context.Context, serverURL, authToken, collectionUID string) error
}

// SignupRequest is the payload POSTed to /api/v1/authentication/signup.
type SignupRequest struct {
	Username           string
	Salt               []byte
	KDFParams          keys.KDFParams
	EncryptedContent   []byte
	LoginPubkey        []byte
	IdentitySignPubkey []byte
	IdentityBoxPubkey  []byte
	VerificationID     string
}

// ChangePasswordRequest is the payload POSTed to
// /api/v1/authentication/change_password.
type ChangePasswordRequest struct {
	NewSalt             []byte
	NewKDFParams        keys.KDFParams
	NewEncryptedContent []byte
	NewLoginPubkey      []byte
	Signature           []byte
	ChallengeResponse   []byte
}

// Member is one entry in a collection's member list.
type Member struct {
	Username    string
	AccessLevel keys.AccessLevel
}
