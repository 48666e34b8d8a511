// Package syncmodel holds the request/response shapes the Managers
// (sync engine) layer exchanges with the Backend port: list/fetch options,
// batch dependency gating, and fetchUpdates results, generalized from
// files to the generic collection/item hierarchy this module syncs.
package syncmodel

// Prefetch controls whether a fetch/list response streams chunk ciphertext
// inline or returns placeholders for on-demand download.
type Prefetch string

const (
	PrefetchAuto   Prefetch = "auto"
	PrefetchMedium Prefetch = "medium"
)

// ListOptions parameterizes fetch/list calls against the Backend.
type ListOptions struct {
	Stoken        *string
	Iterator      *string
	Limit         int
	WithCollection bool
	Prefetch      Prefetch
}

// FetchUpdatesOptions parameterizes CollectionItemManager.fetchUpdates.
// When Stoken is set the server diffs by stoken and per-item LastEtag is
// ignored.
type FetchUpdatesOptions struct {
	Stoken *string
}

// ItemRef pairs an item uid with the etag the caller last observed, the
// gating unit for batch/transaction/fetchUpdates.
type ItemRef struct {
	UID      string
	LastEtag *string
}

// Dep is a dependency gate: the batch/transaction call fails with
// ConflictError if the server's current etag for UID differs from
// LastEtag.
type Dep = ItemRef

// UpdateResult is what fetchUpdates returns for one requested item: either
// the current remote encrypted item (if it advanced past LastEtag) or
// nothing, represented by a nil Item.
type UpdateResult struct {
	UID  string
	Item []byte // opaque server-encoded EncryptedCollectionItem, caller decodes
}

// IteratorPage is a generic paginated response shape shared by
// list/listIncoming/listOutgoing.
type IteratorPage struct {
	Stoken   *string
	Iterator *string
	Done     bool
}
