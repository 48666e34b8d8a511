// Package revision holds the EncryptedRevision/Chunk envelope types:
// one immutable snapshot of an item's meta+content.
package revision

// Chunk is one content-defined slice of an item's encrypted content.
// ChunkUID is the unpadded base64url MAC of the chunk ciphertext; Content
// holds that ciphertext. envelope.MarkNewChunks clears Content on a chunk
// whose uid the replaced revision already had, so only new chunks carry it
// for upload; a successful upload does not clear it.
type Chunk struct {
	ChunkUID string `cbor:"chunk_uid"`
	Content  []byte `cbor:"content,omitempty"`
}

// EncryptedRevision is one immutable snapshot of an item's meta+content.
// UID is the MAC of the canonical serialization of (meta ‖ ordered chunk
// uids ‖ deleted); it doubles as the item's etag while this revision is
// current.
type EncryptedRevision struct {
	UID     string  `cbor:"uid"`
	Meta    []byte  `cbor:"meta"`
	Chunks  []Chunk `cbor:"chunks"`
	Deleted bool    `cbor:"deleted"`
}

// ChunkUIDs returns the ordered list of chunk uids, used both for the
// revision-uid MAC input and to diff against a prior revision when
// re-chunking on edit.
func (r *EncryptedRevision) ChunkUIDs() []string {
	uids := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		uids[i] = c.ChunkUID
	}
	return uids
}
