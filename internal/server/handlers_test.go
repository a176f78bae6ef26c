package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/ruiji/internal/config"
	"github.com/hyperjump/ruiji/internal/embedding"
	"github.com/hyperjump/ruiji/internal/indexer"
	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/resolver"
	"github.com/hyperjump/ruiji/internal/search"
	"github.com/hyperjump/ruiji/internal/storage"
	"github.com/hyperjump/ruiji/internal/vector"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

type testEnv struct {
	srv   *Server
	root  string
	store *vector.DiskStore
}

// newTestEnv builds a server over a temp image root holding a.png, b.png and c.png.
func newTestEnv(t *testing.T, watch WatchService) *testEnv {
	t.Helper()
	return newTestEnvWithResolver(t, watch, resolver.NewFileResolver())
}

func newTestEnvWithResolver(t *testing.T, watch WatchService, res resolver.Resolver) *testEnv {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "images")
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("pixels of "+name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := vector.NewDiskStore(filepath.Join(dir, "vectors"), 8)
	if err != nil {
		t.Fatal(err)
	}
	events, err := storage.NewSQLiteEventStore(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = events.Close() })

	syncer := indexer.NewSynchronizer(store, embedding.NewMockEmbedder(8), res,
		indexer.WithRecorder(events))
	engine := search.NewEngine(syncer,
		&config.RetrievalConfig{DefaultK: 24, MaxK: 2, MaxCandidates: 5},
		search.WithImageRoot(root, config.DefaultExtensions),
		search.WithEventStore(events))
	srv := NewServer(engine, &config.ServerConfig{Port: 8080}, zap.NewNop(), watch, "", nil)
	return &testEnv{srv: srv, root: root, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, r)
	return w
}

func TestHandleSimilar(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/similar", map[string]interface{}{
		"query":      "a.png",
		"candidates": []string{"a.png", "b.png", "c.png", "missing.png"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.SimilarResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	// k defaults to 24 and is capped at max_k=2.
	if len(resp.Results) != 2 {
		t.Errorf("results: got %d, want 2", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.Key == filepath.ToSlash(filepath.Join(env.root, "a.png")) {
			t.Error("query image returned among results")
		}
		if r.Weight < 0 || r.Weight > 1 {
			t.Errorf("weight out of range: %v", r.Weight)
		}
	}
	if env.store.Len() != 4 {
		t.Errorf("store len = %d, want 4 (missing image stored as zero vector)", env.store.Len())
	}
}

func TestHandleSimilar_Pool(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/similar", map[string]interface{}{"query": "b.png", "pool": true, "k": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.SimilarResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Candidates != 3 || len(resp.Results) != 2 {
		t.Errorf("pool response = %+v", resp)
	}
}

func TestHandleSimilar_CanceledRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	body := bytes.NewBufferString(`{"query":"a.png","candidates":["b.png","c.png"]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/similar", body).WithContext(ctx)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if env.store.Len() != 0 {
		t.Errorf("canceled request stored %d vectors", env.store.Len())
	}
}

func TestHandleSimilar_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing query", map[string]interface{}{"candidates": []string{"a.png"}}},
		{"too many candidates", map[string]interface{}{"query": "a.png", "candidates": []string{"1", "2", "3", "4", "5", "6"}}},
		{"not json", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/similar", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleSimilar_ZeroK(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/similar", map[string]interface{}{
		"query": "a.png", "candidates": []string{"b.png"}, "k": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SimilarResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("results = %#v, want empty list", resp.Results)
	}
}

func TestHandleWarm(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/images/warm", models.WarmRequest{Keys: []string{"a.png", "b.png", "a.png"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.WarmResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Requested != 2 || resp.Embedded != 2 || resp.Appended != 2 {
		t.Errorf("warm response = %+v", resp)
	}

	w = env.do(t, http.MethodPost, "/api/v1/images/warm", models.WarmRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty keys: got %d", w.Code)
	}
}

func TestHandleStatusAndFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/images/warm", models.WarmRequest{Keys: []string{"a.png", "gone.png"}})

	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var status models.StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Images != 2 || status.Dimensions != 8 || status.Events["failed"] != 1 {
		t.Errorf("status = %+v", status)
	}

	w = env.do(t, http.MethodGet, "/api/v1/failures?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("failures: got %d", w.Code)
	}
	var out struct {
		Failures []models.EmbeddingEvent `json:"failures"`
		Total    int                     `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || len(out.Failures) != 1 || filepath.Base(out.Failures[0].Key) != "gone.png" {
		t.Errorf("failures = %+v", out)
	}

	w = env.do(t, http.MethodGet, "/api/v1/failures?limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}
}

func TestHandleRebuild(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/images/warm", models.WarmRequest{Keys: []string{"a.png"}})
	if env.store.Len() != 1 {
		t.Fatalf("store len = %d", env.store.Len())
	}
	w := env.do(t, http.MethodPost, "/api/v1/rebuild", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if env.store.Len() != 0 {
		t.Errorf("store len after rebuild = %d", env.store.Len())
	}
}

func TestHandleRebuild_StopCancelsRewarm(t *testing.T) {
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	gated := resolver.Func(func(_ context.Context, key string) ([]byte, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return []byte(key), nil
	})
	env := newTestEnvWithResolver(t, nil, gated)

	w := env.do(t, http.MethodPost, "/api/v1/rebuild", map[string]bool{"rewarm": true})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("rewarm never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !env.srv.rebuildMu.TryLock() {
		t.Fatal("rebuild still running after Stop")
	}
	env.srv.rebuildMu.Unlock()
	if env.store.Len() != 0 {
		t.Errorf("interrupted rewarm stored %d vectors", env.store.Len())
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	mock := &mockWatchService{dirs: []string{"/tmp/images"}}
	env := newTestEnv(t, mock)
	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/images" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAdd(t *testing.T) {
	mock := &mockWatchService{}
	env := newTestEnv(t, mock)
	w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": env.root})
	if w.Code != http.StatusCreated {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}

	w = env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": env.root + "/nonexistent"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing dir: got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": filepath.Join(env.root, "a.png")})
	if w.Code != http.StatusBadRequest {
		t.Errorf("file path: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesAdd_PersistsConfig(t *testing.T) {
	mock := &mockWatchService{}
	env := newTestEnv(t, mock)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	env.srv.configPath = cfgPath
	env.srv.watchConfig = cfg

	w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": env.root})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d", w.Code)
	}
	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != env.root {
		t.Errorf("persisted directories = %v", loaded.Watch.Directories)
	}
}

func TestHandleWatchDirectoriesRemove(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{dirs: []string{dir}}
	env := newTestEnv(t, mock)
	w := env.do(t, http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}

	w = env.do(t, http.MethodDelete, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing path: got %d", w.Code)
	}
}
