// Package badger implements the storage repositories on BadgerDB.
//
// Chunk records live under keys prefixed by tenant id and collection name,
// so similarity scans are structurally scoped to one tenant collection.
// Every entry is written with a TTL derived from the owning tenant's
// expiry horizon; Badger reclaims expired entries, which is how ephemeral
// collections disappear without explicit deletes.
package badger
