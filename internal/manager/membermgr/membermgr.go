// Package membermgr implements CollectionMemberManager: a thin
// authenticated wrapper over list/remove/modifyAccessLevel/leave.
// Authorization is server-enforced — failures surface as
// apperr.PermissionDenied through the Backend's status mapping, never
// checked here.
package membermgr

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// Manager is the CollectionMemberManager boundary.
type Manager interface {
	List(ctx context.Context, collectionUID string, opts syncmodel.ListOptions) ([]transport.Member, error)
	Remove(ctx context.Context, collectionUID, username string) error
	ModifyAccessLevel(ctx context.Context, collectionUID, username string, level keys.AccessLevel) error
	Leave(ctx context.Context, collectionUID string) error
}

type manager struct {
	logger  *zap.Logger
	backend transport.Backend
	account accountsvc.Service
}

// New constructs a CollectionMemberManager bound to account.
func New(logger *zap.Logger, backend transport.Backend, account accountsvc.Service) Manager {
	return &manager{logger: logger.Named("membermgr"), backend: backend, account: account}
}

func (m *manager) requireLoggedIn() error {
	if !m.account.IsLoggedIn() {
		return apperr.New(apperr.Programming, "member operation attempted on a logged-out account")
	}
	return nil
}

func (m *manager) List(ctx context.Context, collectionUID string, opts syncmodel.ListOptions) ([]transport.Member, error) {
	if err := m.requireLoggedIn(); err != nil {
		return nil, err
	}
	return m.backend.ListMembers(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, opts)
}

func (m *manager) Remove(ctx context.Context, collectionUID, username string) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	return m.backend.RemoveMember(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, username)
}

func (m *manager) ModifyAccessLevel(ctx context.Context, collectionUID, username string, level keys.AccessLevel) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	return m.backend.ModifyMemberAccessLevel(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID, username, level)
}

func (m *manager) Leave(ctx context.Context, collectionUID string) error {
	if err := m.requireLoggedIn(); err != nil {
		return err
	}
	return m.backend.LeaveCollection(ctx, m.account.ServerURL(), m.account.AuthToken(), collectionUID)
}
