package bucket

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/emisoft/buzon/core/ticket"
)

// inmemStore holds evidence in process memory. Used in tests and when no
// bucket is configured; uploads survive only as long as the process.
type inmemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ ticket.EvidenceStore = (*inmemStore)(nil) // interface compliance check

func NewInmemStore() ticket.EvidenceStore {
	return &inmemStore{objects: make(map[string][]byte)}
}

func (s *inmemStore) UploadEvidence(_ context.Context, content []byte, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("evidencias/%s%s", uuid.New(), strings.ToLower(filepath.Ext(filename)))
	s.objects[key] = content
	return key, nil
}

func (s *inmemStore) EvidenceURL(key string) string {
	if key == "" {
		return ""
	}
	return "/evidencias/" + key
}
