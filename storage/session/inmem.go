package session

import (
	"context"
	"sync"

	"github.com/emisoft/buzon/core/otp"
)

// inmemStore keeps sessions in process memory. Single-instance deployments
// and tests; sessions vanish on restart.
type inmemStore struct {
	mu    sync.RWMutex
	table map[string]otp.Session
}

var _ otp.SessionStore = (*inmemStore)(nil) // interface compliance check

func NewInmemStore() otp.SessionStore {
	return &inmemStore{table: make(map[string]otp.Session)}
}

func (s *inmemStore) Get(_ context.Context, sid string) (otp.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.table[sid]; ok {
		return sess, nil
	}
	return otp.Session{}, otp.ErrSessionNotFound
}

func (s *inmemStore) Save(_ context.Context, sid string, sess otp.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[sid] = sess
	return nil
}

func (s *inmemStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.table[sid]; !ok {
		return otp.ErrSessionNotFound
	}
	delete(s.table, sid)
	return nil
}
