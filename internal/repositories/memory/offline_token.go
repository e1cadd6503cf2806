package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.OfflineToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]models.OfflineToken)}
}

func (s *TokenStore) Create(ctx context.Context, token *models.OfflineToken, maxActive int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.TokenID]; exists {
		return domainErrors.ErrDuplicateID.WithMessage("token %s already exists", token.TokenID)
	}
	if maxActive > 0 {
		if n := s.countActive(token.UserID, token.CreatedAt); n >= int64(maxActive) {
			return domainErrors.ErrTokenLimit.WithMessage("user already holds %d active offline tokens", n)
		}
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	s.tokens[token.TokenID] = *token
	return nil
}

func (s *TokenStore) FindByTokenID(ctx context.Context, tokenID string) (*models.OfflineToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[tokenID]
	if !ok {
		return nil, domainErrors.ErrTokenNotFound
	}
	return &token, nil
}

func (s *TokenStore) UpdateLocked(ctx context.Context, tokenID string, fn func(*models.OfflineToken) error) (*models.OfflineToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working, ok := s.tokens[tokenID]
	if !ok {
		return nil, domainErrors.ErrTokenNotFound
	}
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.tokens[tokenID] = working
	out := working
	return &out, nil
}

// countActive must be called with mu held.
func (s *TokenStore) countActive(userID string, now time.Time) int64 {
	var n int64
	for _, token := range s.tokens {
		if token.UserID == userID && token.IsValid(now) {
			n++
		}
	}
	return n
}

func (s *TokenStore) ExpireActive(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, token := range s.tokens {
		if token.Status == models.TokenActive && token.IsExpired(now) {
			token.Status = models.TokenExpired
			token.UpdatedAt = now
			s.tokens[id] = token
			n++
		}
	}
	return n, nil
}

// Len is the number of stored tokens.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
