// Package item holds the EncryptedCollectionItem envelope and the sync
// lifecycle states it moves through.
package item

import "github.com/mapleapps-ca/vaultsync/internal/domain/revision"

// State classifies an item's relationship to the server per the sync state
// machine: New (never uploaded), Clean (matches server), Dirty (local edit
// pending), Deleted (Dirty with the current revision's Deleted flag set),
// Gone (server returned 404 on fetch).
type State int

const (
	StateNew State = iota
	StateClean
	StateDirty
	StateDeleted
	StateGone
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateClean:
		return "Clean"
	case StateDirty:
		return "Dirty"
	case StateDeleted:
		return "Deleted"
	case StateGone:
		return "Gone"
	default:
		return "Unknown"
	}
}

// EncryptedCollectionItem is one item within a collection: an optional
// per-item key (sealed under the collection key — when nil the collection
// key is used directly), the current revision, and the etag/lastEtag pair
// optimistic concurrency is gated on.
type EncryptedCollectionItem struct {
	UID           string                      `cbor:"uid"`
	Version       int                         `cbor:"version"`
	EncryptionKey []byte                      `cbor:"encryption_key,omitempty"`
	Content       *revision.EncryptedRevision `cbor:"content"`
	Etag          *string                     `cbor:"etag,omitempty"`
	LastEtag      *string                     `cbor:"last_etag,omitempty"`

	// Gone marks a sentinel item the manager returns in place of a fetch
	// result: the server answered 404 for a uid the caller asked for by
	// name. It is never set by decoding server responses.
	Gone bool `cbor:"-"`
}

// State derives the item's sync lifecycle state from its etag/lastEtag
// pair and its current revision's Deleted flag. An item with no etag, or
// one never marked saved (lastEtag nil), is New. Gone is not derivable from
// local state alone — the manager sets it explicitly on a 404.
func (i *EncryptedCollectionItem) State() State {
	if i.Gone {
		return StateGone
	}
	if i.Etag == nil || i.LastEtag == nil {
		return StateNew
	}
	dirty := *i.LastEtag != *i.Etag
	if dirty && i.Content != nil && i.Content.Deleted {
		return StateDeleted
	}
	if dirty {
		return StateDirty
	}
	return StateClean
}

// IsUnsaved reports whether the item has never been uploaded or has a
// local edit pending upload.
func (i *EncryptedCollectionItem) IsUnsaved() bool {
	s := i.State()
	return s == StateNew || s == StateDirty || s == StateDeleted
}

// MarkSaved records that the server has accepted the item's current
// revision: lastEtag tracks etag. Called only on a successful
// upload/batch/transaction response, never on cancellation.
func (i *EncryptedCollectionItem) MarkSaved() {
	if i.Etag == nil {
		return
	}
	etag := *i.Etag
	i.LastEtag = &etag
}
