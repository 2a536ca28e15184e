package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

type memRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemRedis() *memRedis {
	return &memRedis{values: map[string]string{}}
}

func (m *memRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", services.ErrCacheMiss
	}
	return v, nil
}

func (m *memRedis) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", services.ErrCacheMiss
	}
	delete(m.values, key)
	return v, nil
}

func (m *memRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type mockPublishService struct {
	services.PublishServiceInterface
	PublishFunc func(ctx context.Context, card models.CardData, expiresInDays *int) (*models.PublishedCard, string, error)
	GetFunc     func(ctx context.Context, token string) (*models.PublishedCard, error)
	RevokeFunc  func(ctx context.Context, token, manageKey string) error
}

func (m *mockPublishService) Publish(ctx context.Context, card models.CardData, expiresInDays *int) (*models.PublishedCard, string, error) {
	return m.PublishFunc(ctx, card, expiresInDays)
}

func (m *mockPublishService) Get(ctx context.Context, token string) (*models.PublishedCard, error) {
	return m.GetFunc(ctx, token)
}

func (m *mockPublishService) Revoke(ctx context.Context, token, manageKey string) error {
	return m.RevokeFunc(ctx, token, manageKey)
}

// failingRenderer stands in for a host where image generation is broken.
type failingRenderer struct{}

func (failingRenderer) Render(ctx context.Context, card models.CardData) ([]byte, error) {
	return nil, fmt.Errorf("%w: no fonts", services.ErrRenderUnavailable)
}

func (failingRenderer) Thumbnail(ctx context.Context, card models.CardData, maxWidth int) ([]byte, error) {
	return nil, fmt.Errorf("%w: no fonts", services.ErrRenderUnavailable)
}

var testNow = time.Date(2026, time.June, 14, 9, 30, 0, 0, time.UTC)

func newTestOutput(renderer services.CardRendererInterface, redis services.RedisClient) *CardOutput {
	if renderer == nil {
		renderer = services.NewCardRenderer(services.RenderOptions{Scale: 1})
	}
	return &CardOutput{
		Renderer:         renderer,
		Downloads:        services.NewDownloadService(redis, time.Minute),
		Brand:            "Vytal",
		BaseURL:          "https://cards.example.org/",
		MessengerBaseURL: services.DefaultMessengerBaseURL,
		Now:              func() time.Time { return testNow },
	}
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}
