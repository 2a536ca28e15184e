package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/models"
)

const (
	ShareExpiryMinDays = 1
	ShareExpiryMaxDays = 3650
)

var (
	ErrShareNotFound      = errors.New("share not found")
	ErrManageKeyMismatch  = errors.New("manage key does not match")
	ErrInvalidShareExpiry = fmt.Errorf("expires_in_days must be between %d and %d", ShareExpiryMinDays, ShareExpiryMaxDays)
)

// PublishServiceInterface is what the share handlers need.
type PublishServiceInterface interface {
	Publish(ctx context.Context, card models.CardData, expiresInDays *int) (*models.PublishedCard, string, error)
	Get(ctx context.Context, token string) (*models.PublishedCard, error)
	Revoke(ctx context.Context, token, manageKey string) error
}

// PublishService stores cards the user chose to expose under a public link.
// There are no accounts: whoever publishes gets a manage key, and only its
// bcrypt hash is kept.
type PublishService struct {
	db         DB
	bcryptCost int
	now        func() time.Time
}

func NewPublishService(db DB) *PublishService {
	return &PublishService{db: db, bcryptCost: bcrypt.DefaultCost, now: time.Now}
}

// Publish stores a valid card and returns it with the plaintext manage key.
func (s *PublishService) Publish(ctx context.Context, card models.CardData, expiresInDays *int) (*models.PublishedCard, string, error) {
	if err := card.CheckEnums(); err != nil {
		return nil, "", err
	}
	card = card.Clone()
	card.Normalize()
	if errs := ValidateCard(card); len(errs) > 0 {
		return nil, "", errs
	}

	var expiresAt *time.Time
	if expiresInDays != nil {
		if *expiresInDays < ShareExpiryMinDays || *expiresInDays > ShareExpiryMaxDays {
			return nil, "", ErrInvalidShareExpiry
		}
		t := s.now().Add(time.Duration(*expiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	token, err := generateShareToken()
	if err != nil {
		return nil, "", err
	}
	manageKey, err := generateShareToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(manageKey), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash manage key: %w", err)
	}
	data, err := json.Marshal(card)
	if err != nil {
		return nil, "", fmt.Errorf("encode card: %w", err)
	}

	published := &models.PublishedCard{Token: token, Card: card, ExpiresAt: expiresAt}
	err = s.db.QueryRow(ctx, `
		INSERT INTO card_shares (token, card, manage_key_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, token, data, string(hash), expiresAt).Scan(&published.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("inserting card share: %w", err)
	}

	return published, manageKey, nil
}

// Get loads a published card. Expired and unknown tokens look the same.
func (s *PublishService) Get(ctx context.Context, token string) (*models.PublishedCard, error) {
	published := &models.PublishedCard{Token: token}
	var data []byte

	err := s.db.QueryRow(ctx, `
		SELECT card, created_at, expires_at, last_accessed_at, access_count
		FROM card_shares
		WHERE token = $1
	`, token).Scan(
		&data,
		&published.CreatedAt,
		&published.ExpiresAt,
		&published.LastAccessedAt,
		&published.AccessCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading card share: %w", err)
	}
	if published.IsExpired(s.now()) {
		return nil, ErrShareNotFound
	}
	if err := json.Unmarshal(data, &published.Card); err != nil {
		return nil, fmt.Errorf("decoding shared card: %w", err)
	}
	published.Card.Normalize()

	if err := s.touchShareToken(ctx, token); err != nil {
		logging.Warn("Failed to record share access", map[string]interface{}{"error": err.Error()})
	}

	return published, nil
}

// Revoke deletes a published card when manageKey matches.
func (s *PublishService) Revoke(ctx context.Context, token, manageKey string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin revoke: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hash, err := lockShareForUpdate(ctx, tx, token)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(manageKey)) != nil {
		return ErrManageKeyMismatch
	}

	if _, err := tx.Exec(ctx, "DELETE FROM card_shares WHERE token = $1", token); err != nil {
		return fmt.Errorf("revoking card share: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revoke: %w", err)
	}
	return nil
}

// CleanupExpired deletes links whose expiry has passed and reports how many
// were removed.
func (s *PublishService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM card_shares WHERE expires_at IS NOT NULL AND expires_at < $1", s.now())
	if err != nil {
		return 0, fmt.Errorf("cleaning up expired shares: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PublishService) touchShareToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE card_shares
		 SET last_accessed_at = NOW(),
		     access_count = access_count + 1
		 WHERE token = $1
		   AND (last_accessed_at IS NULL OR last_accessed_at < NOW() - INTERVAL '1 hour')`,
		token,
	)
	if err != nil {
		return fmt.Errorf("touch share token: %w", err)
	}
	return nil
}

func generateShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidShareToken reports whether token is 64 hex characters.
func IsValidShareToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
