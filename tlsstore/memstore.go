package tlsstore

import (
	"sync"

	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

type credential struct {
	privateKeyPEM string
	certPEM       string
}

// MemStore is a process-wide, in-memory TLSStore, the concrete
// implementation used by local development and the E2E harness in place
// of a platform TLS credential slot.
type MemStore struct {
	mu   sync.Mutex
	tags map[int]credential
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{tags: make(map[int]credential)}
}

func (s *MemStore) Install(tag int, privateKeyPEM, certPEM string) error {
	if privateKeyPEM == "" || certPEM == "" {
		return errcode.New(errcode.Tls, "tlsstore.Install")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[tag] = credential{privateKeyPEM: privateKeyPEM, certPEM: certPEM}
	return nil
}

func (s *MemStore) Remove(tag int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, tag)
	return nil
}

func (s *MemStore) Get(tag int) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.tags[tag]
	return c.privateKeyPEM, c.certPEM, ok
}
