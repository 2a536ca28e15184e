package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisAdapter_MethodsReturnErrorsWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	adapter := NewRedisAdapter(client)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := adapter.Set(ctx, "k", "v", 10*time.Second); err == nil {
		t.Fatal("expected Set to return error when redis unavailable")
	}
	if _, err := adapter.Get(ctx, "k"); err == nil {
		t.Fatal("expected Get to return error when redis unavailable")
	}
	if _, err := adapter.GetDel(ctx, "k"); err == nil {
		t.Fatal("expected GetDel to return error when redis unavailable")
	}
	if err := adapter.Expire(ctx, "k", time.Second); err == nil {
		t.Fatal("expected Expire to return error when redis unavailable")
	}
	if err := adapter.Del(ctx, "k"); err == nil {
		t.Fatal("expected Del to return error when redis unavailable")
	}
}

func TestMissing_MapsRedisNil(t *testing.T) {
	if _, err := missing("", redis.Nil); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	if v, err := missing("x", nil); err != nil || v != "x" {
		t.Fatalf("expected passthrough, got %q %v", v, err)
	}
}

type fakeRedisClient struct {
	values      map[string]string
	ttls        map[string]time.Duration
	setCalls    int
	getDelCalls int
	expireCalls int
	delCalls    int
	setErr      error
	getErr      error
}

func newFakeRedis() *fakeRedisClient {
	return &fakeRedisClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	f.setCalls++
	return nil
}

func (f *fakeRedisClient) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeRedisClient) GetDel(ctx context.Context, key string) (string, error) {
	f.getDelCalls++
	v, err := f.Get(ctx, key)
	if err != nil {
		return "", err
	}
	delete(f.values, key)
	delete(f.ttls, key)
	return v, nil
}

func (f *fakeRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expireCalls++
	if _, ok := f.values[key]; ok {
		f.ttls[key] = expiration
	}
	return nil
}

func (f *fakeRedisClient) Del(ctx context.Context, keys ...string) error {
	f.delCalls += len(keys)
	for _, key := range keys {
		delete(f.values, key)
		delete(f.ttls, key)
	}
	return nil
}
