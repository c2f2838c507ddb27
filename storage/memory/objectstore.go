package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/storage"
)

// ObjectStore is an in-memory storage.ObjectStore used in tests and local
// runs. It implements the same capability interface as the S3 store; the
// engine has no special-cased path for it.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ storage.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore creates an empty in-memory object store.
// Returns the concrete type so tests can seed content directly.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

// Read returns the content stored under the identity.
func (s *ObjectStore) Read(ctx context.Context, identity core.ObjectIdentity) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.objects[identity.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	return cp, nil
}

// Write stores content under the identity.
func (s *ObjectStore) Write(ctx context.Context, identity core.ObjectIdentity, content []byte) error {
	cp := make([]byte, len(content))
	copy(cp, content)
	s.mu.Lock()
	s.objects[identity.String()] = cp
	s.mu.Unlock()
	return nil
}

// List returns the identities under a container whose paths start with
// prefix.
func (s *ObjectStore) List(ctx context.Context, container, prefix string) ([]core.ObjectIdentity, error) {
	keyPrefix := container + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var identities []core.ObjectIdentity
	for key := range s.objects {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		path := strings.TrimPrefix(key, keyPrefix)
		if strings.HasPrefix(path, prefix) {
			identities = append(identities, core.ObjectIdentity{Container: container, Path: path})
		}
	}
	return identities, nil
}

// Ping always succeeds.
func (s *ObjectStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored objects. Test helper.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
