// Package invitationmgr implements CollectionInvitationManager: list
// incoming/outgoing, invite, accept, reject. It follows the same
// repository shape as collectionmgr, generalized to the invitation
// endpoints; the invite/accept crypto sequence lives in
// internal/envelope/invitation.go.
package invitationmgr

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// Manager is the CollectionInvitationManager boundary.
type Manager interface {
	ListIncoming(ctx context.Context, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error)
	ListOutgoing(ctx context.Context, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error)
	Invite(ctx context.Context, col *collection.EncryptedCollection, toUsername string, toPubkey []byte, accessLevel keys.AccessLevel) error
	Accept(ctx context.Context, inv *invitation.SignedInvitation) error
	Reject(ctx context.Context, inv *invitation.SignedInvitation) error
}

type manager struct {
	logger  *zap.Logger
	backend transport.Backend
	account accountsvc.Service
}

// New constructs a CollectionInvitationManager bound to account.
func New(logger *zap.Logger, backend transport.Backend, account accountsvc.Service) Manager {
	return &manager{logger: logger.Named("invitationmgr"), backend: backend, account: account}
}

func (m *manager) requireLoggedIn() error {
	if !m.account.IsLoggedIn() {
		return apperr.New(apperr.Programming, "invitation operation attempted on a logged-out account")
	}
	return nil
}

func (m *manager) ListIncoming(ctx context.Context, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return m.backend.ListIncomingInvitations(ctx, m.account.ServerURL(), m.account.AuthToken(), opts)
}

func (m *manager) ListOutgoing(ctx context.Context, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return m.backend.ListOutgoingInvitations(ctx, m.account.ServerURL(), m.account.AuthToken(), opts)
}

// Invite looks up the recipient's current published pubkey and requires it
// match toPubkey exactly — a mismatch means the caller's view of the
// recipient is stale and must be reconciled before an invitation can be
// issued safely, so this fails with ProgrammingError rather than silently
// using whichever key is "more current".
func (m *manager) Invite(ctx context.Context, col *collection.EncryptedCollection, toUsername string, toPubkey []byte, accessLevel keys.AccessLevel) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	serverURL, authToken := m.account.ServerURL(), m.account.AuthToken()

	recipient, err := m.backend.FetchUserProfile(ctx, serverURL, authToken, toUsername)
	if err != nil {
		return err
	}
	if !bytes.Equal(recipient.IdentitySignPubkey, toPubkey) {
		return apperr.New(apperr.Programming, "recipient's published pubkey does not match the supplied pubkey; reconcile before inviting")
	}

	accountMgr, err := m.account.AccountCryptoManager()
	if err != nil {
		return err
	}
	identityMgr, err := m.account.IdentityCryptoManager()
	if err != nil {
		return err
	}

	inv, err := envelope.CreateInvitation(accountMgr, identityMgr, col, m.account.Profile().Username, toUsername, toPubkey, recipient.IdentityBoxPubkey, accessLevel)
	if err != nil {
		return err
	}
	return m.backend.CreateInvitation(ctx, serverURL, authToken, inv)
}

// Accept verifies the sender's signature, recovers the collection key, and
// re-seals it under the receiver's own AccountCryptoManager before
// notifying the server. Fails with IntegrityError if the signature or
// AEAD verification fails.
func (m *manager) Accept(ctx context.Context, inv *invitation.SignedInvitation) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	accountMgr, err := m.account.AccountCryptoManager()
	if err != nil {
		return err
	}
	identityMgr, err := m.account.IdentityCryptoManager()
	if err != nil {
		return err
	}
	resealedKey, err := envelope.AcceptInvitation(identityMgr, accountMgr, inv)
	if err != nil {
		return err
	}
	return m.backend.AcceptInvitation(ctx, m.account.ServerURL(), m.account.AuthToken(), inv.UID, resealedKey, inv.CollectionType)
}

func (m *manager) Reject(ctx context.Context, inv *invitation.SignedInvitation) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	return m.backend.RejectInvitation(ctx, m.account.ServerURL(), m.account.AuthToken(), inv.UID)
}
