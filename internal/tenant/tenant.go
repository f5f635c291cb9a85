// Package tenant models the tenant scope threaded through every reporting call.
package tenant

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HostKey is the cache segment used when no tenant is active.
const HostKey = "host"

// Header carries the tenant id on incoming requests.
const Header = "__tenant"

// Scope is either a concrete tenant or the host (uuid.Nil).
type Scope struct {
	ID uuid.UUID
}

// Host returns the host scope.
func Host() Scope {
	return Scope{}
}

func ForTenant(id uuid.UUID) Scope {
	return Scope{ID: id}
}

func (s Scope) IsHost() bool {
	return s.ID == uuid.Nil
}

// Key returns the tenant id string or the host sentinel.
func (s Scope) Key() string {
	if s.IsHost() {
		return HostKey
	}
	return s.ID.String()
}

// CacheKey namespaces a cache key prefix with the scope: "{prefix}:{tenant|host}".
func (s Scope) CacheKey(prefix string) string {
	return prefix + ":" + s.Key()
}

// Owns reports whether a row tagged with tenantID is visible in this scope.
func (s Scope) Owns(tenantID uuid.UUID) bool {
	return tenantID == s.ID
}

func (s Scope) String() string {
	return s.Key()
}

// Parse accepts a tenant uuid, the host sentinel or an empty string (host).
func Parse(v string) (Scope, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, HostKey) {
		return Host(), nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return Scope{}, fmt.Errorf("invalid tenant id %q: %w", v, err)
	}
	return ForTenant(id), nil
}

// FromRequest resolves the scope from the __tenant header, then the query string.
func FromRequest(r *http.Request) (Scope, error) {
	if v := r.Header.Get(Header); v != "" {
		return Parse(v)
	}
	return Parse(r.URL.Query().Get(Header))
}
