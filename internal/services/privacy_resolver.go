package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

// Decision reasons reported alongside an allow/deny.
const (
	ReasonSelf            = "self"
	ReasonBlocked         = "blocked"
	ReasonTierOpen        = "tier_open"
	ReasonTierPrivate     = "tier_private"
	ReasonNoConnection    = "no_connection"
	ReasonNotConnected    = "not_connected"
	ReasonConnected       = "connected"
	ReasonPremiumViewer   = "premium_viewer"
	ReasonNotPremium      = "not_premium"
	ReasonGrantExpired    = "grant_expired"
	ReasonGrantRevoked    = "grant_revoked"
	ReasonUnknownTierDeny = "unknown_tier"
	ReasonUnknownTierOpen = "unknown_tier_fallback"
)

// AccessDecision is the resolver's answer plus enough context to explain it.
type AccessDecision struct {
	Allowed        bool                  `json:"allowed"`
	Reason         string                `json:"reason"`
	Category       models.PhotoCategory  `json:"category"`
	Tier           string                `json:"tier,omitempty"`
	Connection     models.ConnectionType `json:"connection,omitempty"`
	GrantID        string                `json:"grant_id,omitempty"`
	GrantRemaining *time.Duration        `json:"grant_remaining_ns,omitempty"`
}

// PrivacyResolver decides whether a viewer may see an owner's photos. It only
// reads; every call recomputes grant expiry from the stored timestamps.
type PrivacyResolver struct {
	connections *ConnectionStore
	profiles    *ProfileStore
	blocks      *BlockList
	grants      *GrantStore
	now         func() time.Time
	// allowUnknownProfileTier keeps the legacy fail-open behaviour for stored
	// profile tiers that are not recognised. Off by default.
	allowUnknownProfileTier bool
}

func NewPrivacyResolver(connections *ConnectionStore, profiles *ProfileStore, blocks *BlockList, grants *GrantStore, allowUnknownProfileTier bool, now func() time.Time) *PrivacyResolver {
	if now == nil {
		now = time.Now
	}
	return &PrivacyResolver{
		connections:             connections,
		profiles:                profiles,
		blocks:                  blocks,
		grants:                  grants,
		now:                     now,
		allowUnknownProfileTier: allowUnknownProfileTier,
	}
}

// CanView is the boolean form of Decide. Store failures come back wrapped in
// ErrIndeterminate with a false result.
func (r *PrivacyResolver) CanView(ctx context.Context, viewerID, ownerID string, category models.PhotoCategory) (bool, error) {
	d, err := r.Decide(ctx, viewerID, ownerID, category)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Decide evaluates, in order: self access, the owner's block list, then the
// owner's tier for the category.
func (r *PrivacyResolver) Decide(ctx context.Context, viewerID, ownerID string, category models.PhotoCategory) (AccessDecision, error) {
	viewerID, ownerID = NormalizeUserID(viewerID), NormalizeUserID(ownerID)
	d := AccessDecision{Category: category}

	if _, err := models.ParsePhotoCategory(string(category)); err != nil {
		return d, fmt.Errorf("decide: %w: %v", ErrInvalidArgument, err)
	}
	if viewerID != "" && viewerID == ownerID {
		return allow(d, ReasonSelf), nil
	}
	if viewerID == "" || ownerID == "" {
		return d, fmt.Errorf("decide: %w", ErrUnauthorized)
	}

	blocked, err := r.blocks.IsBlocked(ctx, ownerID, viewerID)
	if err != nil {
		return d, indeterminate(err)
	}
	if blocked {
		return deny(d, ReasonBlocked), nil
	}

	settings, err := r.profiles.Privacy(ctx, ownerID)
	if err != nil {
		return d, indeterminate(err)
	}

	if category == models.PhotoCategoryProfile {
		return r.decideProfile(ctx, d, viewerID, ownerID, settings.ProfilePhotoVisibility)
	}
	return r.decideGallery(ctx, d, viewerID, ownerID, settings.GalleryVisibility)
}

func (r *PrivacyResolver) decideProfile(ctx context.Context, d AccessDecision, viewerID, ownerID string, tier models.ProfileVisibility) (AccessDecision, error) {
	d.Tier = string(tier)
	switch tier {
	case "":
		// Not configured: same as logged_in_users.
		d.Tier = string(models.ProfileVisibilityLoggedInUsers)
		return allow(d, ReasonTierOpen), nil
	case models.ProfileVisibilityPublic, models.ProfileVisibilityLoggedInUsers:
		return allow(d, ReasonTierOpen), nil
	case models.ProfileVisibilityInterestedUsers:
		return r.connectionGated(ctx, d, viewerID, ownerID, models.ConnectionType.HasInterest, ReasonNoConnection)
	case models.ProfileVisibilityConnectedUsers:
		return r.connectionGated(ctx, d, viewerID, ownerID, models.ConnectionType.IsConnected, ReasonNotConnected)
	case models.ProfileVisibilityPremiumUsers:
		return r.premiumGated(ctx, d, viewerID)
	case models.ProfileVisibilityPrivate:
		return deny(d, ReasonTierPrivate), nil
	}
	if r.allowUnknownProfileTier {
		return allow(d, ReasonUnknownTierOpen), nil
	}
	return deny(d, ReasonUnknownTierDeny), nil
}

func (r *PrivacyResolver) decideGallery(ctx context.Context, d AccessDecision, viewerID, ownerID string, tier models.GalleryVisibility) (AccessDecision, error) {
	d.Tier = string(tier)
	switch tier {
	case models.GalleryVisibilityMutualInterest:
		// mutual_interest, matched and connected all satisfy this tier.
		return r.connectionGated(ctx, d, viewerID, ownerID, models.ConnectionType.IsConnected, ReasonNotConnected)
	case models.GalleryVisibilityPremiumUsers:
		return r.premiumGated(ctx, d, viewerID)
	case models.GalleryVisibilityPrivate:
		return deny(d, ReasonTierPrivate), nil
	case models.GalleryVisibilityConnectedUsers:
	default:
		// Missing or unrecognised gallery tiers use the connected_users rule.
		d.Tier = string(models.GalleryVisibilityConnectedUsers)
	}
	return r.connectionGated(ctx, d, viewerID, ownerID, models.ConnectionType.IsConnected, ReasonNotConnected)
}

// connectionGated applies a connection predicate, then bounds the result by
// any grant the owner issued to the viewer when accepting their interest.
func (r *PrivacyResolver) connectionGated(ctx context.Context, d AccessDecision, viewerID, ownerID string, ok func(models.ConnectionType) bool, denyReason string) (AccessDecision, error) {
	t, err := r.connections.GetConnection(ctx, viewerID, ownerID)
	if err != nil {
		return d, indeterminate(err)
	}
	d.Connection = t
	if !ok(t) {
		return deny(d, denyReason), nil
	}

	g, err := r.grants.ForPair(ctx, ownerID, viewerID)
	if err != nil {
		return d, indeterminate(err)
	}
	if g == nil {
		return allow(d, ReasonConnected), nil
	}
	d.GrantID = g.ID
	now := r.now()
	if !IsGrantActive(g, now) {
		if g.Revoked {
			return deny(d, ReasonGrantRevoked), nil
		}
		return deny(d, ReasonGrantExpired), nil
	}
	if rem, bounded := GrantRemaining(g, now); bounded {
		d.GrantRemaining = &rem
	}
	return allow(d, ReasonConnected), nil
}

func (r *PrivacyResolver) premiumGated(ctx context.Context, d AccessDecision, viewerID string) (AccessDecision, error) {
	premium, err := r.profiles.IsPremium(ctx, viewerID)
	if err != nil {
		return d, indeterminate(err)
	}
	if !premium {
		return deny(d, ReasonNotPremium), nil
	}
	return allow(d, ReasonPremiumViewer), nil
}

func allow(d AccessDecision, reason string) AccessDecision {
	d.Allowed, d.Reason = true, reason
	return d
}

func deny(d AccessDecision, reason string) AccessDecision {
	d.Allowed, d.Reason = false, reason
	return d
}

func indeterminate(err error) error {
	return fmt.Errorf("%w: %w", ErrIndeterminate, err)
}
