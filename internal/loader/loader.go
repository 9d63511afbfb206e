// Package loader retrieves recipe documents through an ordered fallback
// chain of strategies and keeps the cache populated on the way.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"pantrybook/internal/cache"
	"pantrybook/internal/metrics"
	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

// DiscoveryError wraps a failed file-list call. It is fatal to LoadAll.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover recipe files: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// LoadedDocument pairs a document with the key it was discovered under.
type LoadedDocument struct {
	Key string
	Doc *models.RecipeDocument
}

// Loader orchestrates retrieval with cache lookup, opportunistic sweeping,
// and the strategy fallback chain.
type Loader struct {
	transport  transport.Transport
	cache      *cache.Cache
	strategies []Strategy
}

// New creates a loader. An empty strategy list gets the default chain.
func New(t transport.Transport, c *cache.Cache, strategies ...Strategy) *Loader {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Loader{
		transport:  t,
		cache:      c,
		strategies: strategies,
	}
}

// LoadOne returns the document for key, from cache when fresh unless
// forceRefresh is set. On a miss it sweeps expired entries, walks the
// strategy chain, and writes the winner through to the cache. Only the
// final strategy's error propagates.
func (l *Loader) LoadOne(ctx context.Context, key string, forceRefresh bool) (*models.RecipeDocument, error) {
	if !forceRefresh {
		if entry, ok := l.cache.Get(key); ok {
			metrics.RecordCacheLookup(true)
			return entry.Data, nil
		}
		metrics.RecordCacheLookup(false)
	}

	if removed := l.cache.SweepExpired(); len(removed) > 0 {
		log.WithField("keys", strings.Join(removed, ",")).Debug("swept expired cache entries")
	}

	var lastErr error
	for _, strategy := range l.strategies {
		doc, err := l.attempt(ctx, strategy, key)
		if err != nil {
			log.WithField("key", key).
				WithField("strategy", strategy.Name()).
				Warnf("retrieval failed: %v", err)
			lastErr = err
			continue
		}

		l.cache.Put(key, doc)
		metrics.SetCacheEntries(l.cache.Len())
		return doc, nil
	}
	return nil, lastErr
}

// attempt races one strategy against its own timeout. The retrieve
// goroutine delivers into a buffered channel, so when the timeout wins the
// eventual late result is parked there and dropped; it can never reach the
// cache because write-through happens only on the winning return path.
func (l *Loader) attempt(ctx context.Context, strategy Strategy, key string) (*models.RecipeDocument, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, strategy.Timeout())
	defer cancel()

	type result struct {
		doc *models.RecipeDocument
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := strategy.Retrieve(ctx, l.transport, key)
		done <- result{doc: doc, err: err}
	}()

	select {
	case res := <-done:
		outcome := "success"
		if res.err != nil {
			outcome = "error"
		}
		metrics.RecordLoadAttempt(strategy.Name(), outcome, time.Since(start).Seconds())
		return res.doc, res.err
	case <-ctx.Done():
		// The caller cancelling is not the same failure as the strategy
		// exhausting its own budget.
		if cause := ctx.Err(); errors.Is(cause, context.Canceled) {
			metrics.RecordLoadAttempt(strategy.Name(), "cancelled", time.Since(start).Seconds())
			return nil, &transport.RetrievalError{
				Name: key,
				Err:  fmt.Errorf("%s strategy cancelled: %w", strategy.Name(), cause),
			}
		}
		metrics.RecordLoadAttempt(strategy.Name(), "timeout", time.Since(start).Seconds())
		return nil, &transport.RetrievalError{
			Name: key,
			Err:  fmt.Errorf("%s strategy timed out after %s: %w", strategy.Name(), strategy.Timeout(), context.DeadlineExceeded),
		}
	}
}

// LoadAll discovers the remote key set and loads every key concurrently.
// A discovery failure aborts the whole operation; a per-key failure is
// logged and that key is dropped from the result. Successes keep discovery
// order.
func (l *Loader) LoadAll(ctx context.Context, forceRefresh bool) ([]LoadedDocument, error) {
	files, err := l.transport.ListFiles(ctx)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		if file.Type == "file" && strings.HasSuffix(file.Name, ".json") {
			keys = append(keys, file.Name)
		}
	}

	results := make([]*models.RecipeDocument, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			doc, err := l.LoadOne(ctx, key, forceRefresh)
			if err != nil {
				log.WithField("key", key).Errorf("load failed, dropping from result: %v", err)
				return
			}
			results[i] = doc
		}(i, key)
	}
	wg.Wait()

	loaded := make([]LoadedDocument, 0, len(keys))
	for i, doc := range results {
		if doc != nil {
			loaded = append(loaded, LoadedDocument{Key: keys[i], Doc: doc})
		}
	}
	return loaded, nil
}
