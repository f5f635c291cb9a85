// Package artifact holds rendered export files behind short-lived opaque tokens.
//
// Generation and delivery only share the token, so a file can be produced
// by one request and fetched by another until it expires. Content lives in
// process memory; nothing survives a restart.
package artifact

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"saasreports/internal/cache"
	"saasreports/internal/clock"
	"saasreports/internal/core"
)

const (
	// DefaultTTL is how long a stored export stays retrievable.
	DefaultTTL = 10 * time.Minute

	// tokenBytes of entropy per token; rendered as 43 base64url characters.
	tokenBytes = 32
)

// ErrNotFound is returned for unknown or expired tokens. The artifact cannot
// be rebuilt from the token; callers must run the export again.
var ErrNotFound = fmt.Errorf("export artifact %w or expired", core.ErrNotFound)

// Artifact is a stored export file.
type Artifact struct {
	Token       string
	FileName    string
	ContentType string
	Content     []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// TokenCache stores artifacts under random tokens with an absolute TTL.
// Reads are repeatable until expiry.
type TokenCache struct {
	store cache.Store[Artifact]
	ttl   time.Duration
	clock clock.Clock
}

func NewTokenCache(store cache.Store[Artifact], ttl time.Duration, clk clock.Clock) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System()
	}
	return &TokenCache{store: store, ttl: ttl, clock: clk}
}

// Store copies content into the cache and returns its token.
func (c *TokenCache) Store(ctx context.Context, content []byte, fileName, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	now := c.clock.Now()
	c.store.Set(token, Artifact{
		Token:       token,
		FileName:    fileName,
		ContentType: contentType,
		Content:     append([]byte(nil), content...),
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.ttl),
	}, c.ttl)
	return token, nil
}

// Retrieve returns a copy of the artifact stored under token, or ErrNotFound.
func (c *TokenCache) Retrieve(ctx context.Context, token string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if token == "" {
		return Artifact{}, ErrNotFound
	}
	a, ok := c.store.Get(token)
	if !ok {
		return Artifact{}, ErrNotFound
	}
	a.Content = append([]byte(nil), a.Content...)
	return a, nil
}

// NewToken returns a fresh URL-safe token carrying 256 bits of entropy.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate export token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsNotFound reports whether err means the token is unknown or expired.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
