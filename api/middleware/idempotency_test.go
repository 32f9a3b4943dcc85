package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

var testTTLs = IdempotencyTTLs{Default: time.Hour, Critical: 48 * time.Hour}

func dispenseRequest(body string, actor auth.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/administrations", strings.NewReader(body))
	return req.WithContext(WithActor(req.Context(), actor))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"dispense", http.MethodPost, "/api/v1/administrations", 48 * time.Hour, true},
		{"supply resolve", http.MethodPost, "/api/v1/supply-requests/123/resolve", 48 * time.Hour, true},
		{"disposal resolve", http.MethodPost, "/api/v1/disposals/abc/resolve", 48 * time.Hour, true},
		{"supply create", http.MethodPost, "/api/v1/supply-requests", time.Hour, true},
		{"disposal create", http.MethodPost, "/api/v1/disposals", time.Hour, true},
		{"prefill is read only", http.MethodPost, "/api/v1/disposals/prefill", 0, false},
		{"list", http.MethodGet, "/api/v1/administrations", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path, testTTLs)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestRouteTTLDefaults(t *testing.T) {
	ttl, ok := routeTTL(http.MethodPost, "/api/v1/administrations", IdempotencyTTLs{})
	if !ok || ttl != criticalIdempotencyTTL {
		t.Fatalf("expected critical default, got %v %v", ttl, ok)
	}
	ttl, ok = routeTTL(http.MethodPost, "/api/v1/disposals", IdempotencyTTLs{})
	if !ok || ttl != defaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %v %v", ttl, ok)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), testTTLs, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := dispenseRequest(`{"observedCount":4}`, auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse})
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), testTTLs, nil)
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := dispenseRequest(`{"observedCount":4}`, actor)
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := dispenseRequest(`{"observedCount":4}`, actor)
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	other := dispenseRequest(`{"observedCount":4}`, auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse})
	other.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("keys must be scoped per staff member, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	mw := Idempotency(newFakeStore(), testTTLs, nil)
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		req := dispenseRequest(`{"observedCount":4}`, actor)
		req.Header.Set("Idempotency-Key", "retry")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, calls=%d", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), testTTLs, nil)
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := dispenseRequest(`{"observedCount":4}`, actor)
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := dispenseRequest(`{"observedCount":5}`, actor)
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testTTLs, nil)
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}

	var calls int32
	entered := make(chan struct{})
	gate := make(chan struct{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-gate
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := dispenseRequest(`{"observedCount":4}`, actor)
		req.Header.Set("Idempotency-Key", "same")
		handler.ServeHTTP(first, req)
	}()
	<-entered

	dup := dispenseRequest(`{"observedCount":4}`, actor)
	dup.Header.Set("Idempotency-Key", "same")
	dupResp := httptest.NewRecorder()
	handler.ServeHTTP(dupResp, dup)
	if dupResp.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409, got %d", dupResp.Code)
	}

	close(gate)
	<-done
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request 201, got %d", first.Code)
	}

	replay := dispenseRequest(`{"observedCount":4}`, actor)
	replay.Header.Set("Idempotency-Key", "same")
	replayResp := httptest.NewRecorder()
	handler.ServeHTTP(replayResp, replay)
	if replayResp.Code != http.StatusCreated || strings.TrimSpace(replayResp.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored response replay, got %d %s", replayResp.Code, replayResp.Body.String())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("handler executions for one idempotency key: %d", got)
	}
}

func TestIdempotencyMiddlewareReleasesReservationOnPanic(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testTTLs, nil)
	actor := auth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurse}
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("estimator exploded")
	}))

	req := dispenseRequest(`{"observedCount":4}`, actor)
	req.Header.Set("Idempotency-Key", "boom")
	func() {
		defer func() { _ = recover() }()
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.data) != 0 {
		t.Fatalf("expected reservation released, store holds %v", store.data)
	}
}
