package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// IsGrantActive is recomputed on every read; nothing sweeps expired grants.
func IsGrantActive(g *models.PhotoAccessGrant, now time.Time) bool {
	if g == nil || g.Revoked {
		return false
	}
	d, bounded := g.DurationCode.Duration()
	if !bounded {
		return g.DurationCode == models.DurationPermanent
	}
	return now.Before(g.GrantedAt.Add(d))
}

// GrantRemaining returns the time left on a bounded, live grant. ok is false
// for permanent, revoked or expired grants.
func GrantRemaining(g *models.PhotoAccessGrant, now time.Time) (remaining time.Duration, ok bool) {
	if !IsGrantActive(g, now) {
		return 0, false
	}
	d, bounded := g.DurationCode.Duration()
	if !bounded {
		return 0, false
	}
	remaining = g.GrantedAt.Add(d).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// GrantStore persists PhotoAccessGrant hashes and the granter->grantee pointer.
type GrantStore struct {
	store
}

func NewGrantStore(rdb *redis.Client, timeout time.Duration, now func() time.Time) *GrantStore {
	return &GrantStore{store: newStore(rdb, timeout, now)}
}

// Get loads a grant by id.
func (s *GrantStore) Get(ctx context.Context, id string) (*models.PhotoAccessGrant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return readGrant(ctx, s.rdb, id)
}

// ForPair returns the grant the owner gave the viewer, or nil if there is none.
func (s *GrantStore) ForPair(ctx context.Context, granterID, granteeID string) (*models.PhotoAccessGrant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	id, err := s.rdb.Get(ctx, grantPairKey(NormalizeUserID(granterID), NormalizeUserID(granteeID))).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("grant for pair", err)
	}
	g, err := readGrant(ctx, s.rdb, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

// ListByGranter returns every grant an owner has issued.
func (s *GrantStore) ListByGranter(ctx context.Context, granterID string) ([]models.PhotoAccessGrant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ids, err := s.rdb.SMembers(ctx, grantsByGranterKey(NormalizeUserID(granterID))).Result()
	if err != nil {
		return nil, storeErr("list grants", err)
	}
	out := make([]models.PhotoAccessGrant, 0, len(ids))
	for _, id := range ids {
		g, err := readGrant(ctx, s.rdb, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *g)
	}
	return out, nil
}

// writeGrant queues the grant hash, the pair pointer and the index entry.
func writeGrant(ctx context.Context, pipe redis.Pipeliner, g *models.PhotoAccessGrant) {
	fields := map[string]interface{}{
		"id":           g.ID,
		"granterId":    g.GranterID,
		"granteeId":    g.GranteeID,
		"durationCode": string(g.DurationCode),
		"grantedAt":    formatTime(g.GrantedAt),
		"revoked":      formatBool(g.Revoked),
		"interestId":   g.InterestID,
	}
	pipe.HSet(ctx, grantKey(g.ID), fields)
	pipe.Set(ctx, grantPairKey(g.GranterID, g.GranteeID), g.ID, 0)
	pipe.SAdd(ctx, grantsByGranterKey(g.GranterID), g.ID)
}

// deleteGrant queues removal of a grant and its pointers.
func deleteGrant(ctx context.Context, pipe redis.Pipeliner, g *models.PhotoAccessGrant) {
	pipe.Del(ctx, grantKey(g.ID))
	pipe.Del(ctx, grantPairKey(g.GranterID, g.GranteeID))
	pipe.SRem(ctx, grantsByGranterKey(g.GranterID), g.ID)
}

func readGrant(ctx context.Context, c redis.Cmdable, id string) (*models.PhotoAccessGrant, error) {
	fields, err := c.HGetAll(ctx, grantKey(id)).Result()
	if err != nil {
		return nil, storeErr("get grant", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("get grant %s: %w", id, ErrNotFound)
	}
	code, err := models.ParseDurationCode(fields["durationCode"])
	if err != nil {
		return nil, fmt.Errorf("get grant %s: %w: %v", id, ErrCorruptRecord, err)
	}
	return &models.PhotoAccessGrant{
		ID:           fields["id"],
		GranterID:    fields["granterId"],
		GranteeID:    fields["granteeId"],
		DurationCode: code,
		GrantedAt:    parseTime(fields["grantedAt"]),
		Revoked:      parseBool(fields["revoked"]),
		RevokedAt:    parseTimePtr(fields["revokedAt"]),
		InterestID:   fields["interestId"],
	}, nil
}

// pairGrant reads the pointer and grant inside a transaction; nil when absent.
func pairGrant(ctx context.Context, c redis.Cmdable, granterID, granteeID string) (*models.PhotoAccessGrant, error) {
	id, err := c.Get(ctx, grantPairKey(granterID, granteeID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("grant for pair", err)
	}
	g, err := readGrant(ctx, c, id)
	if isNotFound(err) {
		return &models.PhotoAccessGrant{ID: id, GranterID: granterID, GranteeID: granteeID}, nil
	}
	return g, err
}
