package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
)

// TokenRepository stores refresh tokens in Redis, keyed by token value, with
// the TTL matching the token expiry so revocation is automatic.
type TokenRepository struct {
	client *redis.Client
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func refreshTokenKey(token string) string {
	return "auth:refresh:" + token
}

// Save persists a refresh token until it expires.
func (r *TokenRepository) Save(ctx context.Context, token *models.RefreshToken) error {
	if r.client == nil {
		return fmt.Errorf("token store unavailable")
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}
	if err := r.client.Set(ctx, refreshTokenKey(token.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Find loads a refresh token by value. Missing tokens surface as sql.ErrNoRows
// so services classify them the same way as relational misses.
func (r *TokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if r.client == nil {
		return nil, fmt.Errorf("token store unavailable")
	}
	raw, err := r.client.Get(ctx, refreshTokenKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	var stored models.RefreshToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}
	return &stored, nil
}

// Revoke removes a refresh token.
func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, refreshTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
