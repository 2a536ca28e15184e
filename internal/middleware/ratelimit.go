package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
)

// Evaler is the part of the Redis client the limiter needs.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type RateLimiter struct {
	redis  Evaler
	max    int64
	window time.Duration
	prefix string
	keyFn  func(r *http.Request) string
	// failOpen controls behavior when Redis errors: when true, requests are allowed through.
	// For cost-sensitive endpoints, set to false to fail closed.
	failOpen bool
}

func NewRateLimiter(redis Evaler, limit int64, window time.Duration, prefix string, keyFn func(r *http.Request) string, failOpen bool) *RateLimiter {
	return &RateLimiter{
		redis:    redis,
		max:      limit,
		window:   window,
		prefix:   prefix,
		keyFn:    keyFn,
		failOpen: failOpen,
	}
}

// Middleware counts every wrapped route against one shared bucket per client.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return rl.Scoped("")(next)
}

// Scoped returns a middleware whose counter is kept apart from other scopes,
// so a burst of PNG previews does not use up a client's exports.
func (rl *RateLimiter) Scoped(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rl.guard(scope, next)
	}
}

func (rl *RateLimiter) bucketKey(scope string, r *http.Request) string {
	client := rl.keyFn(r)
	if client == "" {
		client = GetClientIP(r)
	}
	if scope == "" {
		return rl.prefix + client
	}
	return rl.prefix + scope + ":" + client
}

func (rl *RateLimiter) guard(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil || rl.max <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.bucketKey(scope, r)
		ctx := r.Context()

		// Use a Lua script to atomically INCR and set EXPIRE if new
		luaScript := `
			local current
			current = redis.call("INCR", KEYS[1])
			if current == 1 then
				redis.call("EXPIRE", KEYS[1], ARGV[1])
			end
			return current
		`
		ttlSeconds := int64(rl.window.Seconds())
		result, err := rl.redis.Eval(ctx, luaScript, []string{key}, ttlSeconds).Result()
		if err != nil {
			logging.Error("Rate limit Redis error", map[string]interface{}{"error": err.Error(), "scope": scope})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "Rate limiting temporarily unavailable")
			return
		}

		var count int64
		// Redis may return int64 or float64 depending on the client/driver details for Lua, handle both
		switch v := result.(type) {
		case int64:
			count = v
		case float64:
			count = int64(v)
		default:
			logging.Error("Rate limit Redis script returned unexpected type", map[string]interface{}{"type": fmt.Sprintf("%T", result)})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "Rate limiting temporarily unavailable")
			return
		}

		if count > rl.max {
			logging.Warn("Card rate limit exceeded", map[string]interface{}{"scope": scope, "path": r.URL.Path})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", ttlSeconds))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetClientIP extracts the client IP from the request, respecting X-Forwarded-For
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by Cloudflare/proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs; the first one is the client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
