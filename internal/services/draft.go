package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

const draftKeyPrefix = "draft:"

var ErrDraftNotFound = errors.New("draft not found")

// Draft is one open generator session.
type Draft struct {
	ID        uuid.UUID        `json:"id"`
	Card      models.CardData  `json:"card"`
	Valid     bool             `json:"valid"`
	Errors    ValidationErrors `json:"errors,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// DraftServiceInterface is what the draft handlers need.
type DraftServiceInterface interface {
	Create(ctx context.Context, category models.Category, kind models.Kind) (*Draft, error)
	Get(ctx context.Context, id uuid.UUID) (*Draft, error)
	Update(ctx context.Context, id uuid.UUID, patch models.CardPatch) (*Draft, error)
	Reset(ctx context.Context, id uuid.UUID, category models.Category) (*Draft, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// DraftService keeps card state in redis between requests. Every read or
// write pushes the expiry back, so only abandoned sessions disappear.
type DraftService struct {
	redis RedisClient
	ttl   time.Duration
	now   func() time.Time
}

func NewDraftService(redis RedisClient, ttl time.Duration) *DraftService {
	return &DraftService{redis: redis, ttl: ttl, now: time.Now}
}

func (s *DraftService) Create(ctx context.Context, category models.Category, kind models.Kind) (*Draft, error) {
	state, err := NewCardState(category)
	if err != nil {
		return nil, err
	}
	if kind != "" {
		if err := state.Update(models.CardPatch{Kind: &kind}); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, uuid.New(), state)
}

func (s *DraftService) Get(ctx context.Context, id uuid.UUID) (*Draft, error) {
	state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Expire(ctx, draftKey(id), s.ttl); err != nil {
		return nil, fmt.Errorf("refresh draft ttl: %w", err)
	}
	return s.view(id, state), nil
}

// Update applies patch. A rejected patch leaves the stored draft unchanged.
func (s *DraftService) Update(ctx context.Context, id uuid.UUID, patch models.CardPatch) (*Draft, error) {
	state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Update(patch); err != nil {
		return nil, err
	}
	return s.save(ctx, id, state)
}

func (s *DraftService) Reset(ctx context.Context, id uuid.UUID, category models.Category) (*Draft, error) {
	state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Reset(category); err != nil {
		return nil, err
	}
	return s.save(ctx, id, state)
}

// Discard ends the session.
func (s *DraftService) Discard(ctx context.Context, id uuid.UUID) error {
	if err := s.redis.Del(ctx, draftKey(id)); err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}
	return nil
}

func (s *DraftService) load(ctx context.Context, id uuid.UUID) (*CardState, error) {
	raw, err := s.redis.Get(ctx, draftKey(id))
	if errors.Is(err, ErrCacheMiss) || (err == nil && raw == "") {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var card models.CardData
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return CardStateFrom(card)
}

func (s *DraftService) save(ctx context.Context, id uuid.UUID, state *CardState) (*Draft, error) {
	data, err := json.Marshal(state.Card())
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	if err := s.redis.Set(ctx, draftKey(id), string(data), s.ttl); err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}
	return s.view(id, state), nil
}

func (s *DraftService) view(id uuid.UUID, state *CardState) *Draft {
	errs := state.Validate()
	return &Draft{
		ID:        id,
		Card:      state.Card(),
		Valid:     len(errs) == 0,
		Errors:    errs,
		ExpiresAt: s.now().Add(s.ttl),
	}
}

func draftKey(id uuid.UUID) string {
	return draftKeyPrefix + id.String()
}
