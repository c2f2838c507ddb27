package badger

import "github.com/harborline/docflow/storage"

// NewMemoryRecordStore creates an in-memory record store for testing.
// Returns the store, the backing backend, and error.
// Caller must close both when done.
func NewMemoryRecordStore() (storage.RecordStore, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	store, err := NewRecordStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return store, backend, nil
}
