package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/domain"
)

type fakeRoleSource struct {
	roles []domain.Role
	err   error
	calls atomic.Int32
}

func (f *fakeRoleSource) ListActiveRoles(_ context.Context) ([]domain.Role, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.roles, nil
}

func TestDefaultRoles_ContainsRequiredSet(t *testing.T) {
	roles := DefaultRoles()
	ids := map[string]domain.Role{}
	for _, r := range roles {
		ids[r.ID] = r
	}
	for _, want := range []string{"spec-email", "profile-blurb", "job-advert", "job-description", "pitch-script", "outreach-message", "cv-reformat"} {
		require.Contains(t, ids, want)
	}
	require.Equal(t, domain.OutputDocument, ids["cv-reformat"].Output)
	require.Equal(t, domain.OutputText, ids["spec-email"].Output)
	// cv-reformat is first so the help card leads with it.
	require.Equal(t, domain.DefaultDocumentRoleID, roles[0].ID)
}

func TestRegistry_ServesDefaultsWithoutSource(t *testing.T) {
	g := NewRegistry(nil, time.Minute)
	roles := g.Roles(context.Background())
	require.NotEmpty(t, roles)
	r, ok := g.Lookup(context.Background(), "cv-reformat")
	require.True(t, ok)
	require.Equal(t, "reformat", r.Trigger)
}

func TestRegistry_CachesWithinWindow(t *testing.T) {
	src := &fakeRoleSource{roles: []domain.Role{{ID: "only", Trigger: "only", Output: domain.OutputText, Active: true}}}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	g := NewRegistry(src, 5*time.Minute)
	g.now = func() time.Time { return now }

	_ = g.Roles(context.Background())
	_ = g.Roles(context.Background())
	require.Equal(t, int32(1), src.calls.Load())

	now = now.Add(6 * time.Minute)
	_ = g.Roles(context.Background())
	require.Equal(t, int32(2), src.calls.Load())
}

func TestRegistry_StaleOnReloadFailure(t *testing.T) {
	src := &fakeRoleSource{roles: []domain.Role{{ID: "custom", Trigger: "custom", Output: domain.OutputText, Active: true}}}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	g := NewRegistry(src, time.Minute)
	g.now = func() time.Time { return now }

	roles := g.Roles(context.Background())
	require.Len(t, roles, 1)

	src.err = errors.New("store down")
	now = now.Add(2 * time.Minute)
	roles = g.Roles(context.Background())
	require.Len(t, roles, 1)
	require.Equal(t, "custom", roles[0].ID)
}

func TestRegistry_DefaultsWhenFirstLoadFails(t *testing.T) {
	src := &fakeRoleSource{err: errors.New("store down")}
	g := NewRegistry(src, time.Minute)
	roles := g.Roles(context.Background())
	require.NotEmpty(t, roles)
	_, ok := g.Lookup(context.Background(), domain.DefaultDocumentRoleID)
	require.True(t, ok)
}
