package engine

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Session is one loaded workbook ready to evaluate: the compiled model
// behind an evaluator, plus the discovered inputs. The mutex gives each
// session at most one writer at a time; callers hold it across a whole
// edit-then-evaluate exchange.
type Session struct {
	mu sync.Mutex

	Evaluator *Evaluator
	Inputs    []InputDescriptor
	Hash      string
	Name      string
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SessionOptions configures how Load builds a session.
type SessionOptions struct {
	Sheet    string
	Inputs   InputOptions
	Registry Registry
}

// HashBytes returns the content key for a workbook payload, in the form
// "sha256:<hex>".
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

const defaultCacheSize = 8

// SessionCache memoizes built sessions by content hash with LRU eviction,
// so repeated loads of an unchanged file skip the model compile entirely.
type SessionCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	hash    string
	session *Session
}

// NewSessionCache builds a cache holding at most max sessions. A max of
// zero or less falls back to the default capacity.
func NewSessionCache(max int) *SessionCache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &SessionCache{
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached session for a hash, marking it most recently
// used.
func (c *SessionCache) Get(hash string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).session, true
}

// Put stores a session under its hash, evicting the least recently used
// entry when the cache is full.
func (c *SessionCache) Put(hash string, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[hash]; ok {
		el.Value.(*cacheEntry).session = s
		c.order.MoveToFront(el)
		return
	}
	c.entries[hash] = c.order.PushFront(&cacheEntry{hash: hash, session: s})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).hash)
	}
}

// Evict removes one entry.
func (c *SessionCache) Evict(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[hash]; ok {
		c.order.Remove(el)
		delete(c.entries, hash)
	}
}

// Len reports the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Load returns a session for the given workbook bytes, reusing the cached
// one when the content hash matches. A fresh build opens the bytes,
// discovers inputs on the main sheet, compiles the model and wires the
// evaluator.
func (c *SessionCache) Load(name string, data []byte, opts SessionOptions) (*Session, error) {
	hash := HashBytes(data)
	if s, ok := c.Get(hash); ok {
		return s, nil
	}

	wb, err := OpenBytes(name, data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	inputs, err := DiscoverInputs(wb, opts.Sheet, opts.Inputs)
	if err != nil {
		return nil, err
	}
	model, err := BuildModel(wb)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Evaluator: NewEvaluator(model, opts.Registry),
		Inputs:    inputs,
		Hash:      hash,
		Name:      name,
	}
	c.Put(hash, s)
	return s, nil
}
