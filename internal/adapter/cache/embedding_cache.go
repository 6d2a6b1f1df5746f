package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// EmbeddingCache is an LRU with TTL for per-sequence embeddings. Entries are
// keyed by a parameter fingerprint plus the symbols, so identical sequences
// computed under identical settings share one entry. Bumping the generation
// drops everything computed against an older alphabet.
type EmbeddingCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	alphaGen uint64
}

type cacheEntry struct {
	emb       domain.Embedding
	timestamp time.Time
	alphaGen  uint64
}

func NewEmbeddingCache(maxSize int, ttl time.Duration) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EmbeddingCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(fingerprint string, symbols []string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	var lenBuf [8]byte
	for _, s := range symbols {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Get returns a private copy of the cached embedding relabelled with id.
func (c *EmbeddingCache) Get(fingerprint string, seq domain.Sequence) (*domain.Embedding, bool) {
	c.mu.RLock()
	key := cacheKey(fingerprint, seq.Symbols)
	entry, exists := c.entries[key]
	currentGen := c.alphaGen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.alphaGen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return clone(&entry.emb, seq.ID), true
}

func (c *EmbeddingCache) Put(fingerprint string, seq domain.Sequence, emb *domain.Embedding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(fingerprint, seq.Symbols)
	entry := &cacheEntry{
		emb:       *clone(emb, ""),
		timestamp: time.Now(),
		alphaGen:  c.alphaGen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry. Call it whenever the alphabet changes.
func (c *EmbeddingCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.alphaGen++
}

func (c *EmbeddingCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *EmbeddingCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *EmbeddingCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *EmbeddingCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func clone(emb *domain.Embedding, id string) *domain.Embedding {
	out := &domain.Embedding{
		SequenceID: id,
		Alphabet:   emb.Alphabet,
		Length:     emb.Length,
	}
	if emb.Vector != nil {
		out.Vector = append([]float64(nil), emb.Vector...)
	}
	if emb.Matrix != nil {
		out.Matrix = mat.DenseCopyOf(emb.Matrix)
	}
	return out
}

// CachedEmbedder wraps an EmbedFunc with the cache. onHit, if non-nil, is
// called for every cache hit.
type CachedEmbedder struct {
	fn          port.EmbedFunc
	cache       *EmbeddingCache
	fingerprint string
	onHit       func(ctx context.Context)
}

func NewCachedEmbedder(fn port.EmbedFunc, cache *EmbeddingCache, fingerprint string, onHit func(ctx context.Context)) *CachedEmbedder {
	return &CachedEmbedder{
		fn:          fn,
		cache:       cache,
		fingerprint: fingerprint,
		onHit:       onHit,
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, seq domain.Sequence) (*domain.Embedding, error) {
	if emb, hit := e.cache.Get(e.fingerprint, seq); hit {
		if e.onHit != nil {
			e.onHit(ctx)
		}
		return emb, nil
	}

	emb, err := e.fn(ctx, seq)
	if err != nil {
		return nil, err
	}

	e.cache.Put(e.fingerprint, seq, emb)

	return emb, nil
}
