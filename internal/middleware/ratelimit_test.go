package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeEvaler struct {
	counts map[string]int64
	err    error
	keys   []string
}

func (f *fakeEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.keys = append(f.keys, keys...)
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[keys[0]]++
	return redis.NewCmdResult(f.counts[keys[0]], nil)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	fake := &fakeEvaler{}
	rl := NewRateLimiter(fake, 2, time.Hour, "ratelimit:render:", GetClientIP, false)
	handler := rl.Middleware(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/cards/render", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	if fake.keys[0] != "ratelimit:render:203.0.113.9" {
		t.Fatalf("unexpected key %q", fake.keys[0])
	}
}

func TestRateLimiter_ScopesCountSeparately(t *testing.T) {
	fake := &fakeEvaler{}
	rl := NewRateLimiter(fake, 1, time.Hour, "ratelimit:render:", GetClientIP, false)
	image := rl.Scoped("image")(okHandler())
	export := rl.Scoped("export")(okHandler())

	send := func(h http.Handler) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.4:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(image); code != http.StatusOK {
		t.Fatalf("expected first image request allowed, got %d", code)
	}
	if code := send(image); code != http.StatusTooManyRequests {
		t.Fatalf("expected second image request limited, got %d", code)
	}
	if code := send(export); code != http.StatusOK {
		t.Fatalf("expected export to have its own bucket, got %d", code)
	}
	if fake.keys[0] != "ratelimit:render:image:198.51.100.4" || fake.keys[2] != "ratelimit:render:export:198.51.100.4" {
		t.Fatalf("unexpected keys %v", fake.keys)
	}
}

func TestRateLimiter_ZeroLimitPassesThrough(t *testing.T) {
	fake := &fakeEvaler{}
	rl := NewRateLimiter(fake, 0, time.Hour, "p:", GetClientIP, false)
	rec := httptest.NewRecorder()
	rl.Scoped("image")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || len(fake.keys) != 0 {
		t.Fatalf("expected pass-through, got %d with keys %v", rec.Code, fake.keys)
	}
}

func TestRateLimiter_FailClosed(t *testing.T) {
	rl := NewRateLimiter(&fakeEvaler{err: errors.New("down")}, 5, time.Hour, "p:", GetClientIP, false)
	rec := httptest.NewRecorder()
	rl.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRateLimiter_FailOpen(t *testing.T) {
	rl := NewRateLimiter(&fakeEvaler{err: errors.New("down")}, 5, time.Hour, "p:", GetClientIP, true)
	rec := httptest.NewRecorder()
	rl.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimiter_EmptyKeyFallsBackToIP(t *testing.T) {
	fake := &fakeEvaler{}
	rl := NewRateLimiter(fake, 5, time.Hour, "p:", func(*http.Request) string { return "" }, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	rl.Middleware(okHandler()).ServeHTTP(httptest.NewRecorder(), req)
	if fake.keys[0] != "p:198.51.100.1" {
		t.Fatalf("unexpected key %q", fake.keys[0])
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", " 192.0.2.7 ")
	if got := GetClientIP(req); got != "192.0.2.7" {
		t.Fatalf("expected 192.0.2.7, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.8:5555"
	if got := GetClientIP(req); got != "192.0.2.8" {
		t.Fatalf("expected 192.0.2.8, got %q", got)
	}
}
