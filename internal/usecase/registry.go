// Package usecase contains the intent router, role registry, and the CV
// structuring pipeline.
package usecase

import (
	"context"
	_ "embed"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/merakitalent/fernando-format/internal/domain"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// roleSnapshot is an immutable view of the role set. Readers always observe
// a whole snapshot; reload swaps the pointer atomically.
type roleSnapshot struct {
	roles    []domain.Role
	byID     map[string]int
	loadedAt time.Time
}

// Registry caches role records from the external config store with a
// lazy-reload window, falling back to stale data and then to the embedded
// defaults.
type Registry struct {
	source domain.RoleSource
	ttl    time.Duration
	now    func() time.Time

	snap atomic.Pointer[roleSnapshot]
	mu   sync.Mutex // serializes reloads, not reads
}

// NewRegistry constructs a Registry. source may be nil, in which case the
// embedded defaults are always served.
func NewRegistry(source domain.RoleSource, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{source: source, ttl: ttl, now: time.Now}
}

// DefaultRoles returns the embedded built-in role set.
func DefaultRoles() []domain.Role {
	var roles []domain.Role
	if err := yaml.Unmarshal(defaultRolesYAML, &roles); err != nil {
		// The embedded file is part of the build; failing to parse it is
		// a programming error.
		panic("usecase: embedded roles.yaml invalid: " + err.Error())
	}
	active := roles[:0]
	for _, r := range roles {
		if r.Active {
			active = append(active, r)
		}
	}
	return active
}

func buildSnapshot(roles []domain.Role, at time.Time) *roleSnapshot {
	byID := make(map[string]int, len(roles))
	for i, r := range roles {
		byID[r.ID] = i
	}
	return &roleSnapshot{roles: roles, byID: byID, loadedAt: at}
}

func (g *Registry) current(ctx context.Context) *roleSnapshot {
	if s := g.snap.Load(); s != nil && g.now().Sub(s.loadedAt) < g.ttl {
		return s
	}
	return g.reload(ctx)
}

// reload is all-or-nothing: a failing load leaves the previous snapshot in
// place (served stale) and only the very first load can fall back to the
// embedded defaults.
func (g *Registry) reload(ctx context.Context) *roleSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Another goroutine may have reloaded while we waited.
	if s := g.snap.Load(); s != nil && g.now().Sub(s.loadedAt) < g.ttl {
		return s
	}
	if g.source != nil {
		roles, err := g.source.ListActiveRoles(ctx)
		if err == nil && len(roles) > 0 {
			s := buildSnapshot(roles, g.now())
			g.snap.Store(s)
			return s
		}
		if err != nil {
			slog.Warn("role config reload failed", slog.Any("error", err))
		}
		if stale := g.snap.Load(); stale != nil {
			// Push the window forward so every read does not retry a
			// failing store.
			s := buildSnapshot(stale.roles, g.now())
			g.snap.Store(s)
			return s
		}
	}
	s := buildSnapshot(DefaultRoles(), g.now())
	g.snap.Store(s)
	return s
}

// Roles returns the role set in stable registry order.
func (g *Registry) Roles(ctx context.Context) []domain.Role {
	return g.current(ctx).roles
}

// Lookup finds a role by id.
func (g *Registry) Lookup(ctx context.Context, id string) (domain.Role, bool) {
	s := g.current(ctx)
	if i, ok := s.byID[id]; ok {
		return s.roles[i], true
	}
	return domain.Role{}, false
}
