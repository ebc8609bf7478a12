package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types. Chunk keys embed the tenant id
// and collection name so that prefix iteration is structurally scoped to
// one tenant collection; the record-level tenant check in chunks.go is the
// second, mandatory line of defense.
const (
	chunkPrefix = "chu"
	jobPrefix   = "job"
	blobPrefix  = "blb"
)

// makeChunkKey generates a key for a chunk record.
// Format: chu:tenant:collection:documentID:ordinal
// The ordinal is written in BigEndian order so lexicographic key order
// matches document order.
func makeChunkKey(tenant, collection, documentID string, ordinal int) []byte {
	prefix := makeChunkDocumentPrefix(tenant, collection, documentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makeChunkScanPrefix generates the iteration prefix for one tenant collection.
func makeChunkScanPrefix(tenant, collection string) []byte {
	return []byte(chunkPrefix + ":" + tenant + ":" + collection + ":")
}

// makeChunkDocumentPrefix generates the iteration prefix for one document
// within a tenant collection.
func makeChunkDocumentPrefix(tenant, collection, documentID string) []byte {
	return []byte(chunkPrefix + ":" + tenant + ":" + collection + ":" + documentID + ":")
}

// makeJobKey generates a key for a job record by id.
func makeJobKey(id string) []byte {
	return []byte(jobPrefix + ":" + id)
}

// makeBlobKey generates a key for a blob by ref.
func makeBlobKey(ref string) []byte {
	return []byte(blobPrefix + ":" + ref)
}
