package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/storage"
)

// RecordStore implements storage.RecordStore for BadgerDB.
type RecordStore struct {
	backend *Backend
}

var _ storage.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore over an open backend.
//
// Returns storage.RecordStore interface to enforce abstraction.
func NewRecordStore(backend *Backend) (storage.RecordStore, error) {
	return &RecordStore{backend: backend}, nil
}

// Get retrieves the record for an object identity.
func (s *RecordStore) Get(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error) {
	var record *core.DocumentRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(identity))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return nil, storage.ErrStorageClosed
		}
		return nil, err
	}
	return record, nil
}

// Upsert writes the record as a single atomic update.
func (s *RecordStore) Upsert(ctx context.Context, record *core.DocumentRecord) error {
	value, err := storage.MarshalRecord(record)
	if err != nil {
		return err
	}
	err = s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeRecordKey(record.Identity), value)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return storage.ErrStorageClosed
	}
	return err
}

// ListStale returns non-terminal records last touched before olderThan.
// A full prefix scan of the record space; record counts are bounded by the
// document corpus, not by event volume, so this stays cheap enough for the
// startup recovery path it serves.
func (s *RecordStore) ListStale(ctx context.Context, olderThan time.Time) ([]*core.DocumentRecord, error) {
	var stale []*core.DocumentRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordScanPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalRecord(val)
				if err != nil {
					return err
				}
				if !record.IsTerminal() && record.UpdatedAt.Before(olderThan) {
					stale = append(stale, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return nil, storage.ErrStorageClosed
		}
		return nil, err
	}
	return stale, nil
}

// Ping reports whether the store is open.
func (s *RecordStore) Ping(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Close releases resources. The backend is owned by the caller.
func (s *RecordStore) Close() error {
	return nil
}
