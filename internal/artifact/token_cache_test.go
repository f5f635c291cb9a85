package artifact

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"saasreports/internal/cache"
	"saasreports/internal/clock"
	"saasreports/internal/core"
)

func newTestTokenCache() (*TokenCache, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	return NewTokenCache(cache.NewLRUCache[Artifact](16, clk), DefaultTTL, clk), clk
}

func TestTokenCache_StoreRetrieveWithinTTL(t *testing.T) {
	c, clk := newTestTokenCache()
	ctx := context.Background()

	token, err := c.Store(ctx, []byte{0x01, 0x02}, "Invoices.xlsx", "application/octet-stream")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	for i := 0; i < 3; i++ {
		a, err := c.Retrieve(ctx, token)
		if err != nil {
			t.Fatalf("Retrieve #%d: %v", i, err)
		}
		if !bytes.Equal(a.Content, []byte{0x01, 0x02}) {
			t.Fatalf("content = %v", a.Content)
		}
		if a.FileName != "Invoices.xlsx" {
			t.Fatalf("file name = %q", a.FileName)
		}
		clk.Advance(3 * time.Minute)
	}
}

func TestTokenCache_ExpiredAndUnknown(t *testing.T) {
	c, clk := newTestTokenCache()
	ctx := context.Background()

	token, _ := c.Store(ctx, []byte{0x01, 0x02}, "a.pdf", "application/pdf")
	clk.Advance(10 * time.Minute)

	if _, err := c.Retrieve(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
	if _, err := c.Retrieve(ctx, "does-not-exist"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
	if _, err := c.Retrieve(ctx, ""); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ErrNotFound should wrap core.ErrNotFound, got %v", err)
	}
}

func TestTokenCache_ContentIsCopied(t *testing.T) {
	c, _ := newTestTokenCache()
	ctx := context.Background()

	content := []byte("original")
	token, _ := c.Store(ctx, content, "f", "text/plain")
	content[0] = 'X'

	a, _ := c.Retrieve(ctx, token)
	a.Content[1] = 'Y'

	again, _ := c.Retrieve(ctx, token)
	if string(again.Content) != "original" {
		t.Fatalf("cached content mutated: %q", again.Content)
	}
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if len(tok) != 43 {
			t.Fatalf("token length = %d, want 43", len(tok))
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestTokenCache_CancelledContext(t *testing.T) {
	c, _ := newTestTokenCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Store(ctx, []byte("x"), "f", "t"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
