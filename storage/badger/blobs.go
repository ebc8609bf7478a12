package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/corpus/storage"
)

// BlobRepository implements storage.BlobRepository for BadgerDB.
// Uploaded files are stored verbatim under opaque refs and reclaimed by
// Badger once their TTL passes.
type BlobRepository struct {
	backend *Backend
}

var _ storage.BlobRepository = (*BlobRepository)(nil)

// NewBlobRepository creates a new BlobRepository.
func NewBlobRepository(backend *Backend) (storage.BlobRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &BlobRepository{backend: backend}, nil
}

// Close releases resources. The backend is owned by the caller.
func (r *BlobRepository) Close() error {
	return nil
}

// PutBlob stores data under a fresh opaque ref.
func (r *BlobRepository) PutBlob(ctx context.Context, data []byte, ttl time.Duration) (string, error) {
	ref := uuid.NewString()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := setWithTTL(tx, makeBlobKey(ref), data, ttl); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// GetBlob retrieves blob bytes by ref.
func (r *BlobRepository) GetBlob(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(ref))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: blob %s", storage.ErrNotFound, ref)
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteBlob removes a blob by ref.
func (r *BlobRepository) DeleteBlob(ctx context.Context, ref string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeBlobKey(ref)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
