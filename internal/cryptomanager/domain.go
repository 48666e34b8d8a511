// Package cryptomanager implements the CryptoManagers layer: the layered
// key hierarchy (Main → Login, Account, Identity, Collection, Item) that
// wraps cryptoutil's AEAD/sign primitives with the domain-tagged associated
// data each entity type requires so ciphertext from one domain can never be
// replayed as another's.
package cryptomanager

// Associated-data domain tags. Every Seal/Open and Sign/Verify call in this
// package is scoped to exactly one of these.
const (
	domainAccount       = "Account"
	domainLogin         = "Login"
	domainIdentity      = "Identity"
	domainCollection    = "Col"
	domainColItemKey    = "ColItemKey"
	domainColItemMeta   = "ColItemMeta"
	domainColItemChunk  = "ColItemChunk"
	domainColItemRevUID = "ColItemRevisionUid"
	domainInvitation    = "Invitation"
)
