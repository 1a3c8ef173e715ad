package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
)

// MemoryRepo is an in-memory repository with the same contract as FileRepo
// minus the backing directory. Used for STORE_BACKEND=memory and unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]document.Document)}
}

func (m *MemoryRepo) Get(key string) (document.Document, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[key]; ok {
		return document.Clone(d), nil
	}
	return nil, fmt.Errorf("%w: %s", document.ErrNotFound, key)
}

func (m *MemoryRepo) Put(key string, doc document.Document) (*document.Entry, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(key, doc)
}

func (m *MemoryRepo) PutUnique(key string, doc document.Document) (*document.Entry, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate := key
	for n := 2; ; n++ {
		if _, ok := m.store[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s-%d", key, n)
	}
	return m.put(candidate, doc)
}

func (m *MemoryRepo) put(key string, doc document.Document) (*document.Entry, error) {
	body, err := document.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	m.store[key] = document.Clone(doc)
	return &document.Entry{Key: key, Prefix: document.Prefix(key), Value: doc, Body: body, StoredAt: time.Now().UTC()}, nil
}

func (m *MemoryRepo) Delete(key string) (bool, error) {
	if err := document.ValidateKey(key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[key]; !ok {
		return false, nil
	}
	delete(m.store, key)
	return true, nil
}

func (m *MemoryRepo) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.store))
	for k := range m.store {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *MemoryRepo) Grouped() map[string][]string {
	return document.GroupByPrefix(m.Keys())
}
