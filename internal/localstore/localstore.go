// Package localstore is the optional, non-core local session cache: a
// goleveldb-backed key/value store the CLI uses to persist an Account's
// Save() bytes across process restarts. The crypto/sync core
// (internal/service/accountsvc and everything above it) never imports this
// package — persistent storage is an external collaborator.
//
// It opens a goleveldb.DB with a bloom filter and does plain Get/Set/Delete
// against it, translating ErrNotFound to a nil return so callers never
// special-case leveldb's sentinel error.
package localstore

import (
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	dberr "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
)

// Store persists opaque session blobs (accountsvc.Service.Save() output)
// keyed by username, so the CLI can restore a session without re-deriving
// mainKey from a password on every invocation.
type Store interface {
	SaveSession(username string, data []byte) error
	LoadSession(username string) ([]byte, error)
	DeleteSession(username string) error
	Close() error
}

type store struct {
	logger *zap.Logger
	db     *leveldb.DB
}

// Open opens (creating if absent) a goleveldb database at
// filepath.Join(dir, "sessions").
func Open(logger *zap.Logger, dir string) (Store, error) {
	path := filepath.Join(dir, "sessions")
	o := &opt.Options{Filter: filter.NewBloomFilter(10)}
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "open session store at "+path, err)
	}
	return &store{logger: logger.Named("localstore"), db: db}, nil
}

func (s *store) SaveSession(username string, data []byte) error {
	if err := s.db.Put([]byte(username), data, nil); err != nil {
		return apperr.Wrap(apperr.Programming, "save session for "+username, err)
	}
	return nil
}

// LoadSession returns (nil, nil) when no session is stored for username.
func (s *store) LoadSession(username string) ([]byte, error) {
	data, err := s.db.Get([]byte(username), nil)
	if err == dberr.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "load session for "+username, err)
	}
	return data, nil
}

func (s *store) DeleteSession(username string) error {
	if err := s.db.Delete([]byte(username), nil); err != nil {
		return apperr.Wrap(apperr.Programming, "delete session for "+username, err)
	}
	return nil
}

func (s *store) Close() error {
	return s.db.Close()
}
