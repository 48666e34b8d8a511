package envelope

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/chunker"
	"github.com/mapleapps-ca/vaultsync/internal/cryptomanager"
	"github.com/mapleapps-ca/vaultsync/internal/domain/revision"
)

var canonicalEncMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

// canonicalRevisionInput is the (meta ‖ ordered chunk uids ‖ deleted)
// shape the revision uid is a MAC over. A dedicated struct with a
// canonical cbor encoding, rather than naive byte concatenation, keeps the
// field boundaries unambiguous.
type canonicalRevisionInput struct {
	SealedMeta []byte   `cbor:"1,keyasint"`
	ChunkUIDs  []string `cbor:"2,keyasint"`
	Deleted    bool     `cbor:"3,keyasint"`
}

func canonicalRevisionBytes(sealedMeta []byte, chunkUIDs []string, deleted bool) ([]byte, error) {
	encoded, err := canonicalEncMode.Marshal(canonicalRevisionInput{
		SealedMeta: sealedMeta,
		ChunkUIDs:  chunkUIDs,
		Deleted:    deleted,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "encode canonical revision input", err)
	}
	return encoded, nil
}

// buildRevision seals meta, splits content into content-defined chunks,
// seals each chunk, and computes the revision uid. It takes no prior
// revision: SealChunk's deterministic nonce already makes an unchanged
// plaintext chunk reseal to byte-identical ciphertext and the same uid;
// MarkNewChunks then tags which chunks are new.
func buildRevision(itemMgr *cryptomanager.CollectionItemCryptoManager, meta, content []byte, deleted bool) (*revision.EncryptedRevision, error) {
	sealedMeta, err := itemMgr.SealMeta(meta)
	if err != nil {
		return nil, err
	}

	plainChunks := chunker.Split(content)
	chunks := make([]revision.Chunk, len(plainChunks))
	chunkUIDs := make([]string, len(plainChunks))
	for i, plain := range plainChunks {
		ciphertext, uid, err := itemMgr.SealChunk(plain)
		if err != nil {
			return nil, err
		}
		chunks[i] = revision.Chunk{ChunkUID: uid, Content: ciphertext}
		chunkUIDs[i] = uid
	}

	canonical, err := canonicalRevisionBytes(sealedMeta, chunkUIDs, deleted)
	if err != nil {
		return nil, err
	}
	uid, err := itemMgr.RevisionUID(canonical)
	if err != nil {
		return nil, err
	}

	return &revision.EncryptedRevision{
		UID:     uid,
		Meta:    sealedMeta,
		Chunks:  chunks,
		Deleted: deleted,
	}, nil
}

// MarkNewChunks compares a freshly built revision's chunks against the
// chunks of the revision it replaces and clears Content on any chunk whose
// uid already exists in prior — those bytes are already on the server and
// must not be re-uploaded.
func MarkNewChunks(next *revision.EncryptedRevision, prior *revision.EncryptedRevision) {
	if prior == nil {
		return
	}
	known := make(map[string]bool, len(prior.Chunks))
	for _, c := range prior.Chunks {
		known[c.ChunkUID] = true
	}
	for i := range next.Chunks {
		if known[next.Chunks[i].ChunkUID] {
			next.Chunks[i].Content = nil
		}
	}
}

// Verify recomputes the revision uid from rev's own meta/chunks and
// compares it to rev.UID. It does not re-derive the uid from decrypted
// plaintext — the uid already covers the sealed meta and chunk uids, so a
// mismatch here means the envelope was tampered with or corrupted, not
// that the content changed.
func Verify(itemMgr *cryptomanager.CollectionItemCryptoManager, rev *revision.EncryptedRevision) error {
	canonical, err := canonicalRevisionBytes(rev.Meta, rev.ChunkUIDs(), rev.Deleted)
	if err != nil {
		return err
	}
	ok, err := itemMgr.VerifyRevisionUID(canonical, rev.UID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.Integrity, "revision uid does not match recomputed mac")
	}
	return nil
}

// DecryptContent decrypts and concatenates rev's chunks. Every chunk must
// carry its ciphertext (Content non-nil) — callers responsible for
// on-demand chunk download must fetch any missing ones first.
func DecryptContent(itemMgr *cryptomanager.CollectionItemCryptoManager, rev *revision.EncryptedRevision) ([]byte, error) {
	plainChunks := make([][]byte, len(rev.Chunks))
	for i, c := range rev.Chunks {
		if c.Content == nil {
			return nil, apperr.New(apperr.Programming, "chunk content missing, fetch it before decrypting")
		}
		plain, err := itemMgr.OpenChunk(c.Content, c.ChunkUID)
		if err != nil {
			return nil, err
		}
		plainChunks[i] = plain
	}
	return chunker.Join(plainChunks), nil
}

// DecryptMeta decrypts rev's meta bytes.
func DecryptMeta(itemMgr *cryptomanager.CollectionItemCryptoManager, rev *revision.EncryptedRevision) ([]byte, error) {
	return itemMgr.OpenMeta(rev.Meta)
}
