package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pantrybook/internal/cache"
	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

// fakeTransport is an in-memory document store for tests.
type fakeTransport struct {
	mu         sync.Mutex
	files      []transport.FileInfo
	listErr    error
	docs       map[string]*models.RecipeDocument
	failDirect map[string]bool
	failBase64 map[string]bool
	fetchCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		docs:       make(map[string]*models.RecipeDocument),
		failDirect: make(map[string]bool),
		failBase64: make(map[string]bool),
	}
}

func (f *fakeTransport) add(name string) {
	f.docs[name] = &models.RecipeDocument{Name: name}
	f.files = append(f.files, transport.FileInfo{Type: "file", Name: name})
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeTransport) ListFiles(ctx context.Context) ([]transport.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeTransport) FetchDocument(ctx context.Context, name string) (*models.RecipeDocument, error) {
	f.mu.Lock()
	f.fetchCalls++
	fail := f.failDirect[name]
	doc, ok := f.docs[name]
	f.mu.Unlock()

	if fail {
		return nil, &transport.RetrievalError{Name: name, StatusCode: 500}
	}
	if !ok {
		return nil, &transport.RetrievalError{Name: name, Err: transport.ErrNotFound}
	}
	return doc, nil
}

func (f *fakeTransport) FetchDocumentBase64(ctx context.Context, name string) (*models.RecipeDocument, error) {
	f.mu.Lock()
	fail := f.failBase64[name]
	doc, ok := f.docs[name]
	f.mu.Unlock()

	if fail {
		return nil, &transport.RetrievalError{Name: name, StatusCode: 500}
	}
	if !ok {
		return nil, &transport.RetrievalError{Name: name, Err: transport.ErrNotFound}
	}
	return doc, nil
}

func (f *fakeTransport) WriteDocument(ctx context.Context, name string, doc *models.RecipeDocument) error {
	f.mu.Lock()
	f.docs[name] = doc
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) DocumentExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	_, ok := f.docs[name]
	f.mu.Unlock()
	return ok, nil
}

func TestLoadOneWritesThrough(t *testing.T) {
	ft := newFakeTransport()
	ft.add("soup.json")
	c := cache.New(time.Minute)
	l := New(ft, c)

	doc, err := l.LoadOne(context.Background(), "soup.json", false)
	if err != nil {
		t.Fatalf("LoadOne() error: %v", err)
	}
	if doc.Name != "soup.json" {
		t.Errorf("LoadOne() returned %q", doc.Name)
	}
	if _, ok := c.Get("soup.json"); !ok {
		t.Error("LoadOne() did not write through to the cache")
	}
}

func TestLoadOneServesCacheHit(t *testing.T) {
	ft := newFakeTransport()
	ft.add("soup.json")
	l := New(ft, cache.New(time.Minute))

	if _, err := l.LoadOne(context.Background(), "soup.json", false); err != nil {
		t.Fatalf("first LoadOne() error: %v", err)
	}
	before := ft.calls()
	if _, err := l.LoadOne(context.Background(), "soup.json", false); err != nil {
		t.Fatalf("second LoadOne() error: %v", err)
	}
	if ft.calls() != before {
		t.Error("second LoadOne() hit the transport despite a fresh cache entry")
	}
}

func TestLoadOneForceRefreshBypassesCache(t *testing.T) {
	ft := newFakeTransport()
	ft.add("soup.json")
	l := New(ft, cache.New(time.Minute))

	if _, err := l.LoadOne(context.Background(), "soup.json", false); err != nil {
		t.Fatalf("LoadOne() error: %v", err)
	}
	before := ft.calls()
	if _, err := l.LoadOne(context.Background(), "soup.json", true); err != nil {
		t.Fatalf("forced LoadOne() error: %v", err)
	}
	if ft.calls() == before {
		t.Error("forceRefresh did not reach the transport")
	}
}

func TestLoadOneFallsBackToNextStrategy(t *testing.T) {
	ft := newFakeTransport()
	ft.add("soup.json")
	ft.failDirect["soup.json"] = true
	l := New(ft, cache.New(time.Minute))

	doc, err := l.LoadOne(context.Background(), "soup.json", false)
	if err != nil {
		t.Fatalf("LoadOne() error: %v, want base64 fallback to succeed", err)
	}
	if doc.Name != "soup.json" {
		t.Errorf("LoadOne() returned %q", doc.Name)
	}
}

func TestLoadOnePropagatesLastStrategyError(t *testing.T) {
	ft := newFakeTransport()
	l := New(ft, cache.New(time.Minute))

	_, err := l.LoadOne(context.Background(), "missing.json", false)
	if err == nil {
		t.Fatal("LoadOne() succeeded for a missing document")
	}
	// The final strategy (verified fetch) reports not-found.
	if !errors.Is(err, transport.ErrNotFound) {
		t.Errorf("LoadOne() error = %v, want the last strategy's not-found", err)
	}
}

// slowStrategy simulates a transport that answers after its budget is
// spent.
type slowStrategy struct {
	delay   time.Duration
	timeout time.Duration
	doc     *models.RecipeDocument
}

func (s slowStrategy) Name() string           { return "slow" }
func (s slowStrategy) Timeout() time.Duration { return s.timeout }

func (s slowStrategy) Retrieve(ctx context.Context, t transport.Transport, name string) (*models.RecipeDocument, error) {
	time.Sleep(s.delay)
	return s.doc, nil
}

func TestLoadOneTimeoutLoserStaysOutOfCache(t *testing.T) {
	ft := newFakeTransport()
	c := cache.New(time.Minute)
	stale := &models.RecipeDocument{Name: "late"}
	l := New(ft, c, slowStrategy{delay: 200 * time.Millisecond, timeout: 20 * time.Millisecond, doc: stale})

	_, err := l.LoadOne(context.Background(), "soup.json", false)
	if err == nil {
		t.Fatal("LoadOne() succeeded, want timeout")
	}

	// Let the abandoned retrieve finish; its result must not appear in
	// the cache.
	time.Sleep(300 * time.Millisecond)
	if _, ok := c.GetAny("soup.json"); ok {
		t.Error("a timed-out strategy's late result reached the cache")
	}
}

func TestLoadOneDistinguishesCancellation(t *testing.T) {
	ft := newFakeTransport()
	c := cache.New(time.Minute)
	l := New(ft, c, slowStrategy{delay: 100 * time.Millisecond, timeout: time.Second, doc: &models.RecipeDocument{Name: "late"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.LoadOne(ctx, "soup.json", false)
	if err == nil {
		t.Fatal("LoadOne() succeeded with a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LoadOne() error = %v, want context.Canceled in the chain", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("LoadOne() error = %v, reports a timeout for a caller cancellation", err)
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("LoadOne() error = %q, want cancellation wording", err)
	}
}

func TestLoadOneTimeoutError(t *testing.T) {
	ft := newFakeTransport()
	l := New(ft, cache.New(time.Minute), slowStrategy{delay: 200 * time.Millisecond, timeout: 20 * time.Millisecond})

	_, err := l.LoadOne(context.Background(), "soup.json", false)
	if err == nil {
		t.Fatal("LoadOne() succeeded, want timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("LoadOne() error = %v, want context.DeadlineExceeded in the chain", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("LoadOne() error = %q, want timeout wording", err)
	}
}

func TestLoadAll(t *testing.T) {
	ft := newFakeTransport()
	ft.add("a.json")
	ft.add("b.json")
	ft.add("c.json")
	ft.files = append(ft.files,
		transport.FileInfo{Type: "dir", Name: "archive"},
		transport.FileInfo{Type: "file", Name: "notes.txt"},
	)
	l := New(ft, cache.New(time.Minute))

	loaded, err := l.LoadAll(context.Background(), false)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("LoadAll() returned %d documents, want 3 (.json files only)", len(loaded))
	}
	for i, want := range []string{"a.json", "b.json", "c.json"} {
		if loaded[i].Key != want {
			t.Errorf("LoadAll()[%d].Key = %q, want %q (discovery order)", i, loaded[i].Key, want)
		}
	}
}

func TestLoadAllPartialFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.add("good.json")
	// Discovered but unretrievable on every strategy.
	ft.files = append(ft.files, transport.FileInfo{Type: "file", Name: "broken.json"})
	l := New(ft, cache.New(time.Minute))

	loaded, err := l.LoadAll(context.Background(), false)
	if err != nil {
		t.Fatalf("LoadAll() error: %v, want partial success", err)
	}
	if len(loaded) != 1 || loaded[0].Key != "good.json" {
		t.Errorf("LoadAll() = %v, want just good.json", loaded)
	}
}

func TestLoadAllDiscoveryFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.listErr = errors.New("store unreachable")
	l := New(ft, cache.New(time.Minute))

	_, err := l.LoadAll(context.Background(), false)
	if err == nil {
		t.Fatal("LoadAll() succeeded despite discovery failure")
	}
	var discovery *DiscoveryError
	if !errors.As(err, &discovery) {
		t.Errorf("LoadAll() error = %T, want *DiscoveryError", err)
	}
}
