package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// ProfileStore reads and writes the per-user hash at user:{id}.
type ProfileStore struct {
	store
}

func NewProfileStore(rdb *redis.Client, timeout time.Duration, now func() time.Time) *ProfileStore {
	return &ProfileStore{store: newStore(rdb, timeout, now)}
}

// Create writes a new profile. Unset privacy tiers get the defaults.
func (s *ProfileStore) Create(ctx context.Context, p models.UserProfile) error {
	p.ID = NormalizeUserID(p.ID)
	if p.ID == "" {
		return fmt.Errorf("create profile: %w", ErrInvalidArgument)
	}
	defaults := models.DefaultPrivacySettings()
	if p.Privacy.ProfilePhotoVisibility == "" {
		p.Privacy.ProfilePhotoVisibility = defaults.ProfilePhotoVisibility
	}
	if p.Privacy.GalleryVisibility == "" {
		p.Privacy.GalleryVisibility = defaults.GalleryVisibility
	}
	if !p.Privacy.ProfilePhotoVisibility.Valid() || !p.Privacy.GalleryVisibility.Valid() {
		return fmt.Errorf("create profile: %w: privacy %+v", ErrInvalidArgument, p.Privacy)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	fields := map[string]interface{}{
		"id":                     p.ID,
		"username":               p.Username,
		"isPremium":              formatBool(p.IsPremium),
		"isVerified":             formatBool(p.IsVerified),
		"createdAt":              formatTime(p.CreatedAt),
		"profilePhotoVisibility": string(p.Privacy.ProfilePhotoVisibility),
		"galleryVisibility":      string(p.Privacy.GalleryVisibility),
	}
	if p.PremiumUntil != nil {
		fields["premiumUntil"] = formatTime(*p.PremiumUntil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storeErr("create profile", s.rdb.HSet(ctx, userKey(p.ID), fields).Err())
}

// Get loads a profile. A missing hash is ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	id = NormalizeUserID(id)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fields, err := s.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("get profile %s: %w", id, ErrNotFound)
	}
	return &models.UserProfile{
		ID:           id,
		Username:     fields["username"],
		IsPremium:    parseBool(fields["isPremium"]),
		PremiumUntil: parseTimePtr(fields["premiumUntil"]),
		IsVerified:   parseBool(fields["isVerified"]),
		CreatedAt:    parseTime(fields["createdAt"]),
		Privacy: models.PrivacySettings{
			ProfilePhotoVisibility: models.ProfileVisibility(fields["profilePhotoVisibility"]),
			GalleryVisibility:      models.GalleryVisibility(fields["galleryVisibility"]),
		},
	}, nil
}

// Exists reports whether a profile hash is present.
func (s *ProfileStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.rdb.Exists(ctx, userKey(NormalizeUserID(id))).Result()
	if err != nil {
		return false, storeErr("profile exists", err)
	}
	return n > 0, nil
}

// Privacy returns the stored tiers as-is. An owner with no record gets empty
// settings and no error, so an access check can still resolve.
func (s *ProfileStore) Privacy(ctx context.Context, id string) (models.PrivacySettings, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	vals, err := s.rdb.HMGet(ctx, userKey(NormalizeUserID(id)), "profilePhotoVisibility", "galleryVisibility").Result()
	if err != nil {
		return models.PrivacySettings{}, storeErr("get privacy", err)
	}
	var out models.PrivacySettings
	if v, ok := vals[0].(string); ok {
		out.ProfilePhotoVisibility = models.ProfileVisibility(v)
	}
	if v, ok := vals[1].(string); ok {
		out.GalleryVisibility = models.GalleryVisibility(v)
	}
	return out, nil
}

// UpdatePrivacy validates and writes whichever tiers are set.
func (s *ProfileStore) UpdatePrivacy(ctx context.Context, id string, settings models.PrivacySettings) error {
	id = NormalizeUserID(id)
	fields := map[string]interface{}{}
	if settings.ProfilePhotoVisibility != "" {
		if !settings.ProfilePhotoVisibility.Valid() {
			return fmt.Errorf("update privacy: %w: profile visibility %q", ErrInvalidArgument, settings.ProfilePhotoVisibility)
		}
		fields["profilePhotoVisibility"] = string(settings.ProfilePhotoVisibility)
	}
	if settings.GalleryVisibility != "" {
		if !settings.GalleryVisibility.Valid() {
			return fmt.Errorf("update privacy: %w: gallery visibility %q", ErrInvalidArgument, settings.GalleryVisibility)
		}
		fields["galleryVisibility"] = string(settings.GalleryVisibility)
	}
	if len(fields) == 0 {
		return fmt.Errorf("update privacy: %w: nothing to update", ErrInvalidArgument)
	}
	if err := s.requireExists(ctx, id); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storeErr("update privacy", s.rdb.HSet(ctx, userKey(id), fields).Err())
}

// IsPremium answers the premium_users tier. Unknown viewers are not premium.
func (s *ProfileStore) IsPremium(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	vals, err := s.rdb.HMGet(ctx, userKey(NormalizeUserID(id)), "isPremium", "premiumUntil").Result()
	if err != nil {
		return false, storeErr("get premium", err)
	}
	flag, _ := vals[0].(string)
	until, _ := vals[1].(string)
	p := models.UserProfile{IsPremium: parseBool(flag), PremiumUntil: parseTimePtr(until)}
	return p.HasActivePremium(s.now()), nil
}

// SetPremium is the admin toggle. until may be nil for an open-ended tier.
func (s *ProfileStore) SetPremium(ctx context.Context, id string, premium bool, until *time.Time) error {
	id = NormalizeUserID(id)
	if err := s.requireExists(ctx, id); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(id), "isPremium", formatBool(premium))
		if until != nil && premium {
			pipe.HSet(ctx, userKey(id), "premiumUntil", formatTime(*until))
		} else {
			pipe.HDel(ctx, userKey(id), "premiumUntil")
		}
		return nil
	})
	return storeErr("set premium", err)
}

// SetVerified is the admin verification toggle.
func (s *ProfileStore) SetVerified(ctx context.Context, id string, verified bool) error {
	id = NormalizeUserID(id)
	if err := s.requireExists(ctx, id); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storeErr("set verified", s.rdb.HSet(ctx, userKey(id), "isVerified", formatBool(verified)).Err())
}

// AddPhoto appends an uploaded media public id to the owner's list.
func (s *ProfileStore) AddPhoto(ctx context.Context, id string, category models.PhotoCategory, publicID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storeErr("add photo", s.rdb.RPush(ctx, photosKey(NormalizeUserID(id), string(category)), publicID).Err())
}

// Photos lists media public ids, oldest first. limit <= 0 means all.
func (s *ProfileStore) Photos(ctx context.Context, id string, category models.PhotoCategory, limit int) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.LRange(ctx, photosKey(NormalizeUserID(id), string(category)), 0, stop).Result()
	if err != nil {
		return nil, storeErr("list photos", err)
	}
	return ids, nil
}

func (s *ProfileStore) requireExists(ctx context.Context, id string) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

// PremiumUntilFromDays turns an admin "days" value into an expiry. days <= 0
// means open-ended.
func PremiumUntilFromDays(now time.Time, days int) *time.Time {
	if days <= 0 {
		return nil
	}
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}
