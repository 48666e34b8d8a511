// Package session is the CLI-only glue between accountsvc.Service and
// internal/localstore: it loads a previously-saved session for a given
// username before a command runs and persists the (possibly refreshed)
// session bytes back afterward. Neither the vaultsync core nor
// internal/localstore know about each other; this package is where the
// demo binary wires them together.
package session

import (
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/localstore"
	"github.com/mapleapps-ca/vaultsync/internal/service/accountsvc"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

// Manager resolves an accountsvc.Service for a username, restoring it from
// the local session store when one exists.
type Manager struct {
	logger  *zap.Logger
	backend transport.Backend
	store   localstore.Store
}

func New(logger *zap.Logger, backend transport.Backend, store localstore.Store) *Manager {
	return &Manager{logger: logger.Named("session"), backend: backend, store: store}
}

// Open restores username's saved session, if any. The returned Service has
// no active session (IsLoggedIn() false) when nothing was stored yet —
// callers use this for signup/login, and the non-nil-session path for
// every other command.
func (m *Manager) Open(username string) (accountsvc.Service, error) {
	svc := accountsvc.New(m.logger, m.backend)
	data, err := m.store.LoadSession(username)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return svc, nil
	}
	if err := svc.Load(data); err != nil {
		return nil, err
	}
	return svc, nil
}

// Persist saves svc's current session under username, overwriting any
// prior session for that user.
func (m *Manager) Persist(username string, svc accountsvc.Service) error {
	data, err := svc.Save()
	if err != nil {
		return err
	}
	return m.store.SaveSession(username, data)
}

// Forget removes username's saved session, used after logout.
func (m *Manager) Forget(username string) error {
	return m.store.DeleteSession(username)
}

// RequireLoggedIn is a small guard CLI commands call before using a
// restored session, producing a clearer error than a deep ProgrammingError
// from inside a manager.
func RequireLoggedIn(svc accountsvc.Service) error {
	if !svc.IsLoggedIn() {
		return apperr.New(apperr.Programming, "no saved session for this user; run signup or login first")
	}
	return nil
}
