package db

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// MemoryBackend is an in-process document store. It is safe for concurrent
// use and is intended for tests and local runs. Unique indexes are enforced
// the way MongoDB enforces them: an absent field counts as null.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
	closed      bool
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (b *MemoryBackend) Collection(name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &memoryCollection{
			name:    name,
			docs:    make(map[string]Document),
			indexes: make(map[string]bool),
		}
		b.collections[name] = c
	}
	return c
}

// Ping fails once the backend has been closed.
func (b *MemoryBackend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return apperrors.NewUnavailableError("memory ping", fmt.Errorf("backend closed"))
	}
	return nil
}

// Close marks the backend closed. Stored documents are kept.
func (b *MemoryBackend) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type memoryCollection struct {
	mu   sync.RWMutex
	name string
	docs map[string]Document
	// order keeps insertion order so Find results are stable.
	order []string
	// indexes maps field name to uniqueness.
	indexes map[string]bool
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) InsertOne(_ context.Context, doc Document) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := doc.withoutID()
	if err := c.checkUniqueLocked("", stored); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.docs[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

func (c *memoryCollection) UpdateByID(_ context.Context, id string, doc Document) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.ErrMalformedID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.docs[id]
	if !ok {
		return nil
	}
	merged := current.Clone()
	for k, v := range doc.withoutID() {
		merged[k] = v
	}
	if err := c.checkUniqueLocked(id, merged); err != nil {
		return err
	}
	c.docs[id] = merged
	return nil
}

func (c *memoryCollection) FindByID(_ context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrMalformedID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[id]
	if !ok {
		return nil, apperrors.ErrResourceNotFound
	}
	return withID(doc, id), nil
}

func (c *memoryCollection) FindOne(_ context.Context, filter Filter) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, filter) {
			return withID(doc, id), nil
		}
	}
	return nil, apperrors.ErrResourceNotFound
}

func (c *memoryCollection) Find(_ context.Context, filter Filter) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Document, 0)
	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, filter) {
			out = append(out, withID(doc, id))
		}
	}
	return out, nil
}

func (c *memoryCollection) DeleteByID(_ context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, apperrors.ErrMalformedID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}
	c.removeLocked(id)
	return 1, nil
}

func (c *memoryCollection) DeleteMany(_ context.Context, filter Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var victims []string
	for _, id := range c.order {
		if matches(c.docs[id], filter) {
			victims = append(victims, id)
		}
	}
	for _, id := range victims {
		c.removeLocked(id)
	}
	return int64(len(victims)), nil
}

func (c *memoryCollection) Count(_ context.Context, filter Filter) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (c *memoryCollection) GroupCount(_ context.Context, field string, filter Filter) ([]GroupCount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		buckets []GroupCount
		index   = make(map[string]int)
		nullIdx = -1
	)
	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, filter) {
			continue
		}
		key := stringKey(doc[field])
		if key == nil {
			if nullIdx < 0 {
				nullIdx = len(buckets)
				buckets = append(buckets, GroupCount{})
			}
			buckets[nullIdx].Count++
			continue
		}
		i, ok := index[*key]
		if !ok {
			i = len(buckets)
			index[*key] = i
			buckets = append(buckets, GroupCount{Key: key})
		}
		buckets[i].Count++
	}
	return buckets, nil
}

func (c *memoryCollection) EnsureIndex(_ context.Context, field string, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if unique {
		seen := make([]any, 0, len(c.docs))
		for _, id := range c.order {
			v := c.docs[id][field]
			for _, s := range seen {
				if valuesEqual(s, v) {
					return apperrors.NewConstraintError(c.name, fmt.Errorf("existing duplicates on %s", field))
				}
			}
			seen = append(seen, v)
		}
	}
	c.indexes[field] = c.indexes[field] || unique
	return nil
}

// checkUniqueLocked rejects doc when it collides with another document on
// any unique index. selfID is excluded from the comparison.
func (c *memoryCollection) checkUniqueLocked(selfID string, doc Document) error {
	for field, unique := range c.indexes {
		if !unique {
			continue
		}
		for id, other := range c.docs {
			if id == selfID {
				continue
			}
			if valuesEqual(other[field], doc[field]) {
				return apperrors.NewConstraintError(c.name, fmt.Errorf("duplicate key on %s", field))
			}
		}
	}
	return nil
}

func (c *memoryCollection) removeLocked(id string) {
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func withID(doc Document, id string) Document {
	out := doc.Clone()
	out[IDField] = id
	return out
}

// matches evaluates filter against a stored document.
func matches(doc Document, filter Filter) bool {
	for field, want := range filter.Eq {
		if !valuesEqual(doc[field], want) {
			return false
		}
	}
	for _, field := range filter.NonEmpty {
		switch v := doc[field].(type) {
		case nil:
			return false
		case string:
			if v == "" {
				return false
			}
		}
	}
	return true
}

// valuesEqual compares two document values, treating all numeric kinds as
// comparable numbers.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
