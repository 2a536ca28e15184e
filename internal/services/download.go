package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	downloadKeyPrefix = "download:"

	// DownloadTokenAlphabet avoids characters that need escaping in a path.
	DownloadTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	DownloadTokenLength   = 24
)

var ErrDownloadNotFound = errors.New("download not found")

// Download is a rendered image parked for a single fetch.
type Download struct {
	Token     string    `json:"token"`
	Filename  string    `json:"filename"`
	PNG       []byte    `json:"png"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DownloadServiceInterface interface {
	Create(ctx context.Context, png []byte, filename string) (*Download, error)
	Take(ctx context.Context, token string) (*Download, error)
}

// DownloadService hands out single-use links for rendered cards. A handle is
// revoked the first time it is taken, or when its TTL runs out.
type DownloadService struct {
	redis RedisClient
	ttl   time.Duration
	now   func() time.Time
}

func NewDownloadService(redis RedisClient, ttl time.Duration) *DownloadService {
	return &DownloadService{redis: redis, ttl: ttl, now: time.Now}
}

func (s *DownloadService) Create(ctx context.Context, png []byte, filename string) (*Download, error) {
	token, err := gonanoid.Generate(DownloadTokenAlphabet, DownloadTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate download token: %w", err)
	}
	d := &Download{
		Token:     token,
		Filename:  filename,
		PNG:       png,
		ExpiresAt: s.now().Add(s.ttl),
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode download: %w", err)
	}
	if err := s.redis.Set(ctx, downloadKeyPrefix+token, string(data), s.ttl); err != nil {
		return nil, fmt.Errorf("store download: %w", err)
	}
	return d, nil
}

// Take returns the download and revokes it in the same call.
func (s *DownloadService) Take(ctx context.Context, token string) (*Download, error) {
	raw, err := s.redis.GetDel(ctx, downloadKeyPrefix+token)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrDownloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take download: %w", err)
	}
	var d Download
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode download: %w", err)
	}
	return &d, nil
}

// IsValidDownloadToken reports whether token could have come from Create.
func IsValidDownloadToken(token string) bool {
	if len(token) != DownloadTokenLength {
		return false
	}
	for _, r := range token {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}
