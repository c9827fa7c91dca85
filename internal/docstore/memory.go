package docstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// MemoryStore keeps JSON-encoded documents in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Set(ctx context.Context, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	docs := c.store.collections[c.name]
	if docs == nil {
		docs = make(map[string][]byte)
		c.store.collections[c.name] = docs
	}
	docs[id] = body
	return nil
}

func (c *memoryCollection) Get(ctx context.Context, id string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.RLock()
	body, ok := c.store.collections[c.name][id]
	c.store.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(body, dst)
}

func (c *memoryCollection) Where(ctx context.Context, field string, value any) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}

	c.store.mu.RLock()
	ids := make([]string, 0, len(c.store.collections[c.name]))
	bodies := make(map[string][]byte, len(ids))
	for id, body := range c.store.collections[c.name] {
		ids = append(ids, id)
		bodies[id] = body
	}
	c.store.mu.RUnlock()
	sort.Strings(ids)

	var out []Document
	for _, id := range ids {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(bodies[id], &fields); err != nil {
			continue
		}
		got, ok := fields[field]
		if !ok || !bytes.Equal(bytes.TrimSpace(got), want) {
			continue
		}
		body := bodies[id]
		out = append(out, Document{ID: id, decode: func(dst any) error {
			return json.Unmarshal(body, dst)
		}})
	}
	return out, nil
}
