package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlockList keeps blocked_users:{owner} sets. Blocking wipes every
// connection, interest and grant between the pair in the same transaction,
// so nothing stale can keep granting photo access. Decline markers are not
// relationship state and outlive the block, so block then unblock cannot
// reset a resend cooldown.
type BlockList struct {
	store
	profiles *ProfileStore
}

func NewBlockList(rdb *redis.Client, profiles *ProfileStore, timeout time.Duration, now func() time.Time) *BlockList {
	return &BlockList{store: newStore(rdb, timeout, now), profiles: profiles}
}

// IsBlocked reports whether blocker has blocked blocked.
func (b *BlockList) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	ok, err := b.rdb.SIsMember(ctx, blockedUsersKey(NormalizeUserID(blockerID)), NormalizeUserID(blockedID)).Result()
	if err != nil {
		return false, storeErr("is blocked", err)
	}
	return ok, nil
}

// Block adds blockedID to blockerID's set and cascades. Repeating it is a no-op.
func (b *BlockList) Block(ctx context.Context, blockerID, blockedID string) error {
	blockerID, blockedID = NormalizeUserID(blockerID), NormalizeUserID(blockedID)
	if blockerID == "" || blockedID == "" || blockerID == blockedID {
		return fmt.Errorf("block: %w", ErrInvalidArgument)
	}
	exists, err := b.profiles.Exists(ctx, blockedID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("block: user %s: %w", blockedID, ErrNotFound)
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	connKey, _, _ := connectionKey(blockerID, blockedID)
	watched := []string{
		connKey,
		interestPairKey(blockerID, blockedID),
		interestPairKey(blockedID, blockerID),
		grantPairKey(blockerID, blockedID),
		grantPairKey(blockedID, blockerID),
		interestsSentKey(blockerID),
		interestsSentKey(blockedID),
	}
	err = b.watch(ctx, func(tx *redis.Tx) error {
		interestIDs, err := pairInterestIDs(ctx, tx, blockerID, blockedID)
		if err != nil {
			return err
		}
		g1, err := pairGrant(ctx, tx, blockerID, blockedID)
		if err != nil {
			return err
		}
		g2, err := pairGrant(ctx, tx, blockedID, blockerID)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, blockedUsersKey(blockerID), blockedID)
			pipe.Del(ctx, connKey)
			pipe.Del(ctx, interestPairKey(blockerID, blockedID), interestPairKey(blockedID, blockerID))
			for _, id := range interestIDs {
				pipe.Del(ctx, interestKey(id))
				for _, uid := range []string{blockerID, blockedID} {
					pipe.SRem(ctx, interestsSentKey(uid), id)
					pipe.SRem(ctx, interestsRecvKey(uid), id)
				}
			}
			if g1 != nil {
				deleteGrant(ctx, pipe, g1)
			}
			if g2 != nil {
				deleteGrant(ctx, pipe, g2)
			}
			return nil
		})
		return err
	}, watched...)
	return storeErr("block", err)
}

// Unblock removes the set membership. It does not restore anything the block
// cascaded away.
func (b *BlockList) Unblock(ctx context.Context, blockerID, blockedID string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	err := b.rdb.SRem(ctx, blockedUsersKey(NormalizeUserID(blockerID)), NormalizeUserID(blockedID)).Err()
	return storeErr("unblock", err)
}

// ListBlocked returns the owner's blocked ids sorted for stable output.
func (b *BlockList) ListBlocked(ctx context.Context, ownerID string) ([]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	ids, err := b.rdb.SMembers(ctx, blockedUsersKey(NormalizeUserID(ownerID))).Result()
	if err != nil {
		return nil, storeErr("list blocked", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// pairInterestIDs collects every interest between a and b, including older
// ones a resend has already replaced behind the pair pointer. Every interest
// sits in its sender's sent set, so scanning both sent sets is enough.
func pairInterestIDs(ctx context.Context, c redis.Cmdable, a, b string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		from, to := pair[0], pair[1]
		if id, err := c.Get(ctx, interestPairKey(from, to)).Result(); err == nil && id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		} else if err != nil && err != redis.Nil {
			return nil, err
		}
		sent, err := c.SMembers(ctx, interestsSentKey(from)).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range sent {
			if seen[id] {
				continue
			}
			recipient, err := c.HGet(ctx, interestKey(id), "toId").Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			if recipient == to {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func eitherBlocked(ctx context.Context, c redis.Cmdable, a, b string) (bool, error) {
	ab, err := c.SIsMember(ctx, blockedUsersKey(a), b).Result()
	if err != nil {
		return false, storeErr("is blocked", err)
	}
	if ab {
		return true, nil
	}
	ba, err := c.SIsMember(ctx, blockedUsersKey(b), a).Result()
	if err != nil {
		return false, storeErr("is blocked", err)
	}
	return ba, nil
}
