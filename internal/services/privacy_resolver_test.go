package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

var categories = []models.PhotoCategory{models.PhotoCategoryProfile, models.PhotoCategoryGallery}

func TestSelfAccessAlwaysAllowed(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.addUser(t, "owner", models.PrivacySettings{
		ProfilePhotoVisibility: models.ProfileVisibilityPrivate,
		GalleryVisibility:      models.GalleryVisibilityPrivate,
	})
	for _, c := range categories {
		if !env.canView(t, "owner", "owner", c) {
			t.Errorf("owner cannot view own %s", c)
		}
	}
	// Self access does not depend on a profile existing.
	if !env.canView(t, "ghost", "ghost", models.PhotoCategoryGallery) {
		t.Error("self access for unknown user denied")
	}
}

func TestBlockSupremacy(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "owner", models.PrivacySettings{
		ProfilePhotoVisibility: models.ProfileVisibilityPublic,
		GalleryVisibility:      models.GalleryVisibilityPremiumUsers,
	})
	env.addUser(t, "viewer", models.PrivacySettings{})
	if err := env.core.Profiles.SetPremium(ctx, "viewer", true, nil); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	if err := env.core.Connections.SetConnection(ctx, "viewer", "owner", models.ConnectionConnected, models.ConnectionStatusActive); err != nil {
		t.Fatalf("SetConnection: %v", err)
	}
	for _, c := range categories {
		if !env.canView(t, "viewer", "owner", c) {
			t.Fatalf("precondition: viewer should see %s", c)
		}
	}

	if err := env.core.Blocks.Block(ctx, "owner", "viewer"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	// Re-create connection state behind the block to prove the block wins.
	if err := env.core.Connections.SetConnection(ctx, "viewer", "owner", models.ConnectionConnected, models.ConnectionStatusActive); err != nil {
		t.Fatalf("SetConnection: %v", err)
	}
	for _, c := range categories {
		d, err := env.core.Resolver.Decide(ctx, "viewer", "owner", c)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if d.Allowed || d.Reason != ReasonBlocked {
			t.Errorf("%s after block: %+v", c, d)
		}
	}
}

func TestProfileTiers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		tier  models.ProfileVisibility
		setup func(t *testing.T, env *testEnv)
		want  bool
	}{
		{"public", models.ProfileVisibilityPublic, nil, true},
		{"logged in", models.ProfileVisibilityLoggedInUsers, nil, true},
		{"unset defaults to logged in", "", nil, true},
		{"private", models.ProfileVisibilityPrivate, nil, false},
		{"interested without interest", models.ProfileVisibilityInterestedUsers, nil, false},
		{"interested with sent interest", models.ProfileVisibilityInterestedUsers, func(t *testing.T, env *testEnv) {
			env.send(t, "viewer", "owner")
		}, true},
		{"interested with received interest", models.ProfileVisibilityInterestedUsers, func(t *testing.T, env *testEnv) {
			env.send(t, "owner", "viewer")
		}, true},
		{"connected without connection", models.ProfileVisibilityConnectedUsers, func(t *testing.T, env *testEnv) {
			env.send(t, "viewer", "owner")
		}, false},
		{"connected with mutual interest", models.ProfileVisibilityConnectedUsers, func(t *testing.T, env *testEnv) {
			env.send(t, "viewer", "owner")
			env.send(t, "owner", "viewer")
		}, true},
		{"premium viewer", models.ProfileVisibilityPremiumUsers, func(t *testing.T, env *testEnv) {
			if err := env.core.Profiles.SetPremium(ctx, "viewer", true, nil); err != nil {
				t.Fatal(err)
			}
		}, true},
		{"non premium viewer", models.ProfileVisibilityPremiumUsers, nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.addUser(t, "owner", models.PrivacySettings{GalleryVisibility: models.GalleryVisibilityPrivate})
			env.addUser(t, "viewer", models.PrivacySettings{})
			if c.tier == "" {
				env.mr.HDel(userKey("owner"), "profilePhotoVisibility")
			} else {
				env.mr.HSet(userKey("owner"), "profilePhotoVisibility", string(c.tier))
			}
			if c.setup != nil {
				c.setup(t, env)
			}
			if got := env.canView(t, "viewer", "owner", models.PhotoCategoryProfile); got != c.want {
				t.Errorf("canView = %v, want %v", got, c.want)
			}
		})
	}
}

func TestGalleryTiers(t *testing.T) {
	cases := []struct {
		name  string
		tier  string
		setup func(t *testing.T, env *testEnv)
		want  bool
	}{
		{"private", string(models.GalleryVisibilityPrivate), nil, false},
		{"connected without connection", string(models.GalleryVisibilityConnectedUsers), nil, false},
		{"connected pending interest", string(models.GalleryVisibilityConnectedUsers), func(t *testing.T, env *testEnv) {
			env.send(t, "viewer", "owner")
		}, false},
		{"mutual interest tier with mutual interest", string(models.GalleryVisibilityMutualInterest), func(t *testing.T, env *testEnv) {
			env.send(t, "viewer", "owner")
			env.send(t, "owner", "viewer")
		}, true},
		{"unset falls back to connected rule", "", nil, false},
		{"unknown tier falls back to connected rule", "friends_of_friends", func(t *testing.T, env *testEnv) {
			it := env.send(t, "viewer", "owner")
			if _, _, err := env.core.Interests.AcceptInterest(context.Background(), "owner", it.ID, nil); err != nil {
				t.Fatal(err)
			}
		}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.addUser(t, "owner", models.PrivacySettings{})
			env.addUser(t, "viewer", models.PrivacySettings{})
			if c.tier == "" {
				env.mr.HDel(userKey("owner"), "galleryVisibility")
			} else {
				env.mr.HSet(userKey("owner"), "galleryVisibility", c.tier)
			}
			if c.setup != nil {
				c.setup(t, env)
			}
			if got := env.canView(t, "viewer", "owner", models.PhotoCategoryGallery); got != c.want {
				t.Errorf("canView = %v, want %v", got, c.want)
			}
		})
	}
}

func TestUnknownProfileTierFailsClosed(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.addUser(t, "owner", models.PrivacySettings{})
	env.mr.HSet(userKey("owner"), "profilePhotoVisibility", "everyone_nearby")

	d, err := env.core.Resolver.Decide(context.Background(), "viewer", "owner", models.PhotoCategoryProfile)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allowed || d.Reason != ReasonUnknownTierDeny {
		t.Errorf("default decision = %+v, want deny", d)
	}

	open := newTestEnv(t, Options{AllowUnknownProfileTier: true})
	open.addUser(t, "owner", models.PrivacySettings{})
	open.mr.HSet(userKey("owner"), "profilePhotoVisibility", "everyone_nearby")
	if !open.canView(t, "viewer", "owner", models.PhotoCategoryProfile) {
		t.Error("fallback=allow should permit unknown tier")
	}
}

func TestPrivacyToggleTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "owner", models.PrivacySettings{ProfilePhotoVisibility: models.ProfileVisibilityPrivate})

	for _, viewer := range []string{"v1", "v2"} {
		if env.canView(t, viewer, "owner", models.PhotoCategoryProfile) {
			t.Errorf("%s can view private profile photo", viewer)
		}
	}
	if err := env.core.Profiles.UpdatePrivacy(ctx, "owner", models.PrivacySettings{ProfilePhotoVisibility: models.ProfileVisibilityPublic}); err != nil {
		t.Fatalf("UpdatePrivacy: %v", err)
	}
	for _, viewer := range []string{"v1", "v2"} {
		if !env.canView(t, viewer, "owner", models.PhotoCategoryProfile) {
			t.Errorf("%s cannot view public profile photo", viewer)
		}
	}
}

func TestOneWeekGrantExpiresUnderMutualInterestGallery(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{GalleryVisibility: models.GalleryVisibilityMutualInterest})

	it := env.send(t, "a", "b")
	_, grant, err := env.core.Interests.AcceptInterest(ctx, "b", it.ID, durationPtr(models.Duration1Week))
	if err != nil {
		t.Fatalf("AcceptInterest: %v", err)
	}
	if grant == nil || grant.GranterID != "b" || grant.GranteeID != "a" {
		t.Fatalf("grant = %+v", grant)
	}

	d, err := env.core.Resolver.Decide(ctx, "a", "b", models.PhotoCategoryGallery)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed || d.GrantID != grant.ID || d.GrantRemaining == nil || *d.GrantRemaining != 7*24*time.Hour {
		t.Fatalf("immediately after accept: %+v", d)
	}

	env.clock.Advance(8 * 24 * time.Hour)
	d, err = env.core.Resolver.Decide(ctx, "a", "b", models.PhotoCategoryGallery)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allowed || d.Reason != ReasonGrantExpired {
		t.Fatalf("after 8 days: %+v", d)
	}
	// The grant bounds photo access only; the pair is still connected.
	if got := env.connection(t, "a", "b"); got != models.ConnectionConnected {
		t.Errorf("connection after expiry = %s, want connected", got)
	}
	// The other direction has no grant, so b still sees a's gallery.
	if !env.canView(t, "b", "a", models.PhotoCategoryGallery) {
		t.Error("granter lost access to grantee's gallery")
	}
}

func TestConnectedThenBlocked(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{ProfilePhotoVisibility: models.ProfileVisibilityPublic})

	it := env.send(t, "a", "b")
	if _, _, err := env.core.Interests.AcceptInterest(ctx, "b", it.ID, nil); err != nil {
		t.Fatalf("AcceptInterest: %v", err)
	}
	if got := env.connection(t, "a", "b"); got != models.ConnectionConnected {
		t.Fatalf("precondition: %s", got)
	}

	if err := env.core.Blocks.Block(ctx, "b", "a"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if got := env.connection(t, "a", "b"); got != models.ConnectionNone {
		t.Errorf("GetConnection after block = %s, want none", got)
	}
	for _, c := range categories {
		if env.canView(t, "a", "b", c) {
			t.Errorf("blocked viewer can see %s", c)
		}
	}
}

func TestRevokedGrantDenies(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{})

	it := env.send(t, "a", "b")
	_, grant, err := env.core.Interests.AcceptInterest(ctx, "b", it.ID, durationPtr(models.DurationPermanent))
	if err != nil {
		t.Fatalf("AcceptInterest: %v", err)
	}
	if !env.canView(t, "a", "b", models.PhotoCategoryGallery) {
		t.Fatal("permanent grant should allow")
	}
	if _, err := env.core.Interests.RevokeAccess(ctx, "b", grant.ID); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	d, err := env.core.Resolver.Decide(ctx, "a", "b", models.PhotoCategoryGallery)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allowed || d.Reason != ReasonGrantRevoked {
		t.Errorf("after revoke: %+v", d)
	}
}

func TestPremiumExpiry(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "owner", models.PrivacySettings{ProfilePhotoVisibility: models.ProfileVisibilityPremiumUsers})
	env.addUser(t, "viewer", models.PrivacySettings{})

	until := PremiumUntilFromDays(env.clock.Now(), 3)
	if err := env.core.Profiles.SetPremium(ctx, "viewer", true, until); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	if !env.canView(t, "viewer", "owner", models.PhotoCategoryProfile) {
		t.Fatal("premium viewer denied")
	}
	env.clock.Advance(4 * 24 * time.Hour)
	if env.canView(t, "viewer", "owner", models.PhotoCategoryProfile) {
		t.Error("lapsed premium viewer allowed")
	}
}

func TestResolverInputErrors(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.core.Resolver.CanView(ctx, "a", "b", "videos"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad category err = %v", err)
	}
	if _, err := env.core.Resolver.CanView(ctx, "", "b", models.PhotoCategoryProfile); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous viewer err = %v", err)
	}
}

func TestStoreOutageIsIndeterminate(t *testing.T) {
	env := newTestEnv(t, Options{Timeout: 500 * time.Millisecond})
	env.addUser(t, "owner", models.PrivacySettings{ProfilePhotoVisibility: models.ProfileVisibilityPublic})
	env.mr.Close()

	ok, err := env.core.Resolver.CanView(context.Background(), "viewer", "owner", models.PhotoCategoryProfile)
	if ok {
		t.Error("outage returned allow")
	}
	if !errors.Is(err, ErrIndeterminate) {
		t.Errorf("err = %v, want ErrIndeterminate", err)
	}
}
