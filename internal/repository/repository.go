// Package repository is the stateful facade over the cache, the loader,
// and the remote store: reads, optimistic writes, and change notification.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apex/log"

	"pantrybook/internal/cache"
	"pantrybook/internal/loader"
	"pantrybook/internal/metrics"
	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

// SyncStrategy selects how an update reaches the remote store.
type SyncStrategy string

const (
	// SyncImmediate awaits the remote write as part of Update.
	SyncImmediate SyncStrategy = "immediate"
	// SyncDeferred fires the remote write in the background.
	SyncDeferred SyncStrategy = "deferred"
)

// UpdateOptions controls one Update call. Zero value means immediate,
// non-optimistic.
type UpdateOptions struct {
	Sync       SyncStrategy
	Optimistic bool
}

// CacheDelta describes cache entries touched by an operation, the payload
// of cache-update events.
type CacheDelta struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// RecipesListener receives the full current recipe set whenever the
// authoritative set changes.
type RecipesListener func(recipes []*models.RecipeDocument)

// CacheListener receives a delta whenever cache entries are added or
// removed.
type CacheListener func(delta CacheDelta)

// ErrUpdatePending is returned when an update targets a key whose previous
// deferred sync has not finished.
var ErrUpdatePending = errors.New("update already pending for this key")

// RemoteWriteError reports a failed remote sync. When the update was
// optimistic the local apply stands; the divergence heals on the next
// forced refresh.
type RemoteWriteError struct {
	Key string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write for %s: %v", e.Key, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}

// Repository holds the in-memory recipe set and coordinates it with the
// cache and the remote store. All its state is guarded by mu; observers
// are notified against snapshots captured while the lock is held, so they
// never see the recipe set and the cache disagree.
type Repository struct {
	mu      sync.Mutex
	recipes map[string]*models.RecipeDocument
	order   []string
	loaded  bool
	pending map[string]struct{}

	cache     *cache.Cache
	loader    *loader.Loader
	transport transport.Transport

	subMu      sync.Mutex
	nextSubID  int
	recipeSubs map[int]RecipesListener
	cacheSubs  map[int]CacheListener
}

// New creates a repository over an explicit transport, cache, and loader.
func New(t transport.Transport, c *cache.Cache, l *loader.Loader) *Repository {
	return &Repository{
		recipes:    make(map[string]*models.RecipeDocument),
		pending:    make(map[string]struct{}),
		cache:      c,
		loader:     l,
		transport:  t,
		recipeSubs: make(map[int]RecipesListener),
		cacheSubs:  make(map[int]CacheListener),
	}
}

// GetAll returns the current recipe set. The in-memory set is served as
// long as every key is still fresh in the cache; otherwise the loader
// refreshes everything from the remote store.
func (r *Repository) GetAll(ctx context.Context, forceRefresh bool) ([]*models.RecipeDocument, error) {
	r.mu.Lock()
	if !forceRefresh && r.freshLocked() {
		snapshot := r.snapshotLocked()
		r.mu.Unlock()
		return snapshot, nil
	}
	r.mu.Unlock()

	loadedDocs, err := r.loader.LoadAll(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.recipes = make(map[string]*models.RecipeDocument, len(loadedDocs))
	r.order = make([]string, 0, len(loadedDocs))
	added := make([]string, 0, len(loadedDocs))
	for _, ld := range loadedDocs {
		r.recipes[ld.Key] = ld.Doc
		r.order = append(r.order, ld.Key)
		added = append(added, ld.Key)
	}
	r.loaded = true
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.notifyRecipes(snapshot)
	r.notifyCache(CacheDelta{Added: added})
	return snapshot, nil
}

// Get returns one recipe by key, loading it on demand.
func (r *Repository) Get(ctx context.Context, key string) (*models.RecipeDocument, error) {
	r.mu.Lock()
	if doc, ok := r.recipes[key]; ok {
		if _, fresh := r.cache.Get(key); fresh {
			dup := doc.Clone()
			r.mu.Unlock()
			return dup, nil
		}
	}
	r.mu.Unlock()

	doc, err := r.loader.LoadOne(ctx, key, false)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.applyLocked(key, doc)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.notifyRecipes(snapshot)
	r.notifyCache(CacheDelta{Added: []string{key}})
	return doc.Clone(), nil
}

// Update writes a new document for key. With Optimistic set, the local set
// and cache are updated and observers notified before the remote write
// happens. A failed remote write is returned (immediate) or logged
// (deferred) but never rolls the optimistic apply back.
func (r *Repository) Update(ctx context.Context, key string, doc *models.RecipeDocument, opts UpdateOptions) error {
	if opts.Sync == "" {
		opts.Sync = SyncImmediate
	}

	r.mu.Lock()
	if _, busy := r.pending[key]; busy {
		r.mu.Unlock()
		metrics.RecordUpdate(string(opts.Sync), "rejected")
		return ErrUpdatePending
	}
	r.pending[key] = struct{}{}

	var snapshot []*models.RecipeDocument
	if opts.Optimistic {
		r.applyLocked(key, doc)
		snapshot = r.snapshotLocked()
	}
	r.mu.Unlock()

	if opts.Optimistic {
		r.notifyRecipes(snapshot)
		r.notifyCache(CacheDelta{Added: []string{key}})
	}

	if opts.Sync == SyncDeferred {
		go func() {
			defer r.clearPending(key)
			if err := r.transport.WriteDocument(context.Background(), key, doc); err != nil {
				metrics.RecordUpdate(string(SyncDeferred), "error")
				log.WithField("key", key).Errorf("deferred remote write failed: %v", err)
				return
			}
			metrics.RecordUpdate(string(SyncDeferred), "success")
			if !opts.Optimistic {
				r.applyAndNotify(key, doc)
			}
		}()
		return nil
	}

	err := r.transport.WriteDocument(ctx, key, doc)
	r.clearPending(key)
	if err != nil {
		metrics.RecordUpdate(string(SyncImmediate), "error")
		return &RemoteWriteError{Key: key, Err: err}
	}
	metrics.RecordUpdate(string(SyncImmediate), "success")
	if !opts.Optimistic {
		r.applyAndNotify(key, doc)
	}
	return nil
}

// CacheMetadata returns the cache status snapshot.
func (r *Repository) CacheMetadata() cache.Status {
	return r.cache.Status()
}

// SweepCache removes expired cache entries and notifies observers.
func (r *Repository) SweepCache() []string {
	removed := r.cache.SweepExpired()
	if len(removed) > 0 {
		metrics.SetCacheEntries(r.cache.Len())
		r.notifyCache(CacheDelta{Removed: removed})
	}
	return removed
}

// InvalidateCache removes the named entries, or everything when called
// with no keys, and notifies observers.
func (r *Repository) InvalidateCache(keys ...string) []string {
	removed := r.cache.Invalidate(keys...)
	if len(removed) > 0 {
		metrics.SetCacheEntries(r.cache.Len())
		r.notifyCache(CacheDelta{Removed: removed})
	}
	return removed
}

// OnRecipesUpdated registers a listener for authoritative-set changes and
// returns its unsubscribe handle.
func (r *Repository) OnRecipesUpdated(fn RecipesListener) func() {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.recipeSubs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.recipeSubs, id)
		r.subMu.Unlock()
	}
}

// OnCacheUpdated registers a listener for cache entry changes and returns
// its unsubscribe handle.
func (r *Repository) OnCacheUpdated(fn CacheListener) func() {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.cacheSubs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.cacheSubs, id)
		r.subMu.Unlock()
	}
}

// applyLocked installs doc under key in both the recipe set and the cache.
// Touching only its own key keeps unrelated cache entries intact, so an
// update never changes the entry count except by adding a new key.
func (r *Repository) applyLocked(key string, doc *models.RecipeDocument) {
	if _, ok := r.recipes[key]; !ok {
		r.order = append(r.order, key)
	}
	r.recipes[key] = doc
	r.cache.Put(key, doc)
	metrics.SetCacheEntries(r.cache.Len())
}

func (r *Repository) applyAndNotify(key string, doc *models.RecipeDocument) {
	r.mu.Lock()
	r.applyLocked(key, doc)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.notifyRecipes(snapshot)
	r.notifyCache(CacheDelta{Added: []string{key}})
}

func (r *Repository) clearPending(key string) {
	r.mu.Lock()
	delete(r.pending, key)
	r.mu.Unlock()
}

// freshLocked reports whether the in-memory set can be served without a
// reload: it has been loaded and every key still has a fresh cache entry.
func (r *Repository) freshLocked() bool {
	if !r.loaded || len(r.order) == 0 {
		return false
	}
	for _, key := range r.order {
		if _, ok := r.cache.Get(key); !ok {
			return false
		}
	}
	return true
}

// snapshotLocked returns the recipe set in load order as deep copies, safe
// to hand to callers and observers.
func (r *Repository) snapshotLocked() []*models.RecipeDocument {
	snapshot := make([]*models.RecipeDocument, 0, len(r.order))
	for _, key := range r.order {
		if doc, ok := r.recipes[key]; ok {
			snapshot = append(snapshot, doc.Clone())
		}
	}
	return snapshot
}

func (r *Repository) notifyRecipes(snapshot []*models.RecipeDocument) {
	r.subMu.Lock()
	listeners := make([]RecipesListener, 0, len(r.recipeSubs))
	for _, fn := range r.recipeSubs {
		listeners = append(listeners, fn)
	}
	r.subMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (r *Repository) notifyCache(delta CacheDelta) {
	r.subMu.Lock()
	listeners := make([]CacheListener, 0, len(r.cacheSubs))
	for _, fn := range r.cacheSubs {
		listeners = append(listeners, fn)
	}
	r.subMu.Unlock()

	for _, fn := range listeners {
		fn(delta)
	}
}
