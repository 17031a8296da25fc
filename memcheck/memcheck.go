// Package memcheck answers "has a similar question been asked before".
// The result is only logged by the retrieval flow today; it gates nothing.
package memcheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Checker reports whether a similar query was seen before and records the
// current one.
type Checker interface {
	// Seen reports whether the query was recorded earlier for this user.
	Seen(ctx context.Context, userTag, query string) (bool, error)
	// Record stores the query for future checks.
	Record(ctx context.Context, userTag, query string) error
	// Close releases resources owned by the checker.
	Close() error
}

// Key builds the canonical lookup key for a user/query pair.
func Key(userTag, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(userTag + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

// InMemory is a process-local Checker. All operations are thread-safe.
type InMemory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewInMemory creates an empty in-memory checker.
func NewInMemory() *InMemory {
	return &InMemory{seen: make(map[string]struct{})}
}

func (m *InMemory) Seen(_ context.Context, userTag, query string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[Key(userTag, query)]
	return ok, nil
}

func (m *InMemory) Record(_ context.Context, userTag, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[Key(userTag, query)] = struct{}{}
	return nil
}

func (m *InMemory) Close() error {
	return nil
}

var _ Checker = (*InMemory)(nil)
