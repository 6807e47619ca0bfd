package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultDeclineCooldown is how long a declined sender must wait to resend.
const DefaultDeclineCooldown = 30 * 24 * time.Hour

// InterestManager is the only writer of connection-state transitions.
type InterestManager struct {
	store
	profiles *ProfileStore
	notifier Notifier
	// cooldown < 0 means a declined interest can never be resent.
	cooldown time.Duration
}

func NewInterestManager(rdb *redis.Client, profiles *ProfileStore, notifier Notifier, cooldown time.Duration, timeout time.Duration, now func() time.Time) *InterestManager {
	return &InterestManager{
		store:    newStore(rdb, timeout, now),
		profiles: profiles,
		notifier: notifier,
		cooldown: cooldown,
	}
}

// SendInterest records fromID's interest in toID. A second send for the same
// ordered pair is ErrAlreadyExists; the pair pointer is the idempotency key
// and is guarded with WATCH so concurrent sends cannot both win.
func (m *InterestManager) SendInterest(ctx context.Context, fromID, toID string) (*models.Interest, error) {
	fromID, toID = NormalizeUserID(fromID), NormalizeUserID(toID)
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("send interest: %w", ErrInvalidArgument)
	}
	if fromID == toID {
		return nil, fmt.Errorf("send interest to self: %w", ErrInvalidArgument)
	}
	exists, err := m.profiles.Exists(ctx, toID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("send interest: target %s: %w", toID, ErrNotFound)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	pairKey := interestPairKey(fromID, toID)
	reverseKey := interestPairKey(toID, fromID)
	markerKey := declinedKey(fromID, toID)
	connKey, _, _ := connectionKey(fromID, toID)
	var created *models.Interest

	err = m.watch(ctx, func(tx *redis.Tx) error {
		blocked, err := eitherBlocked(ctx, tx, fromID, toID)
		if err != nil {
			return err
		}
		if blocked {
			// A blocked pair looks like an unknown target to the sender.
			return fmt.Errorf("target %s: %w", toID, ErrNotFound)
		}

		existing, err := interestByPointer(ctx, tx, pairKey)
		if err != nil {
			return err
		}
		now := m.now()
		if existing != nil {
			switch existing.Status {
			case models.InterestPending, models.InterestAccepted:
				return fmt.Errorf("interest %s -> %s: %w", fromID, toID, ErrAlreadyExists)
			case models.InterestDeclined:
				if existing.RespondedAt != nil && m.inCooldown(*existing.RespondedAt, now) {
					return fmt.Errorf("interest %s -> %s: %w", fromID, toID, ErrDeclined)
				}
			}
		}
		declinedAt, err := tx.Get(ctx, markerKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if declinedAt != "" && m.inCooldown(parseTime(declinedAt), now) {
			return fmt.Errorf("interest %s -> %s: %w", fromID, toID, ErrDeclined)
		}

		reverse, err := interestByPointer(ctx, tx, reverseKey)
		if err != nil {
			return err
		}
		conn, err := readConnection(ctx, tx, fromID, toID)
		if err != nil {
			return err
		}

		it := &models.Interest{
			ID:        uuid.New().String(),
			FromID:    fromID,
			ToID:      toID,
			Status:    models.InterestPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeInterest(ctx, pipe, it)
			pipe.SAdd(ctx, interestsSentKey(fromID), it.ID)
			pipe.SAdd(ctx, interestsRecvKey(toID), it.ID)
			pipe.Set(ctx, pairKey, it.ID, 0)
			pipe.Del(ctx, markerKey)

			switch {
			case conn != nil && conn.Status != models.ConnectionStatusInactive &&
				(conn.Type == models.ConnectionConnected || conn.Type == models.ConnectionMatched || conn.Type == models.ConnectionPremiumAccess):
				// An established relationship is never downgraded by a new interest.
			case reverse != nil && reverse.Status != models.InterestDeclined:
				writeConnection(ctx, pipe, fromID, toID, models.ConnectionMutualInterest, models.ConnectionStatusActive, reverse.FromID, now)
			default:
				writeConnection(ctx, pipe, fromID, toID, models.ConnectionSentInterest, models.ConnectionStatusPending, fromID, now)
			}
			return nil
		})
		if err != nil {
			return err
		}
		created = it
		return nil
	}, pairKey, reverseKey, markerKey, connKey, blockedUsersKey(fromID), blockedUsersKey(toID))
	if err != nil {
		return nil, storeErr("send interest", err)
	}

	m.notify(models.Notification{
		UserID:     toID,
		Type:       models.NotificationInterestReceived,
		ActorID:    fromID,
		InterestID: created.ID,
	})
	log.Printf("interest %s sent: %s -> %s", created.ID, fromID, toID)
	return created, nil
}

// AcceptInterest moves the pair to connected. With a duration it also creates
// a PhotoAccessGrant from the recipient to the sender in the same EXEC. Only
// the recipient may accept; anyone else gets ErrNotFound.
func (m *InterestManager) AcceptInterest(ctx context.Context, actorID, interestID string, duration *models.DurationCode) (*models.Interest, *models.PhotoAccessGrant, error) {
	actorID = NormalizeUserID(actorID)
	if duration != nil {
		if _, err := models.ParseDurationCode(string(*duration)); err != nil {
			return nil, nil, fmt.Errorf("accept interest: %w: %v", ErrInvalidArgument, err)
		}
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		accepted *models.Interest
		grant    *models.PhotoAccessGrant
	)
	err := m.watch(ctx, func(tx *redis.Tx) error {
		it, err := readInterest(ctx, tx, interestID)
		if err != nil {
			return err
		}
		if it.ToID != actorID {
			return fmt.Errorf("interest %s: %w", interestID, ErrNotFound)
		}
		if it.Status != models.InterestPending {
			return fmt.Errorf("interest %s is %s: %w", interestID, it.Status, ErrConflict)
		}
		blocked, err := eitherBlocked(ctx, tx, it.FromID, it.ToID)
		if err != nil {
			return err
		}
		if blocked {
			return fmt.Errorf("interest %s: %w", interestID, ErrNotFound)
		}
		previous, err := pairGrant(ctx, tx, it.ToID, it.FromID)
		if err != nil {
			return err
		}

		now := m.now()
		it.Status = models.InterestAccepted
		it.UpdatedAt = now
		it.RespondedAt = &now

		var g *models.PhotoAccessGrant
		if duration != nil {
			g = &models.PhotoAccessGrant{
				ID:           uuid.New().String(),
				GranterID:    it.ToID,
				GranteeID:    it.FromID,
				DurationCode: *duration,
				GrantedAt:    now,
				InterestID:   it.ID,
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeInterest(ctx, pipe, it)
			writeConnection(ctx, pipe, it.FromID, it.ToID, models.ConnectionConnected, models.ConnectionStatusActive, it.FromID, now)
			// A fresh acceptance replaces whatever window was granted before.
			if previous != nil {
				deleteGrant(ctx, pipe, previous)
			}
			if g != nil {
				writeGrant(ctx, pipe, g)
			}
			return nil
		})
		if err != nil {
			return err
		}
		accepted, grant = it, g
		return nil
	}, interestKey(interestID))
	if err != nil {
		return nil, nil, storeErr("accept interest", err)
	}

	n := models.Notification{
		UserID:     accepted.FromID,
		Type:       models.NotificationInterestAccepted,
		ActorID:    accepted.ToID,
		InterestID: accepted.ID,
	}
	if grant != nil {
		n.GrantID = grant.ID
	}
	m.notify(n)
	log.Printf("interest %s accepted by %s", accepted.ID, actorID)
	return accepted, grant, nil
}

// DeclineInterest marks the interest declined, which is terminal and starts the
// resend cooldown. The pair record is cleared unless the decliner's own
// interest in the sender keeps it alive.
func (m *InterestManager) DeclineInterest(ctx context.Context, actorID, interestID string) (*models.Interest, error) {
	actorID = NormalizeUserID(actorID)

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var declined *models.Interest
	err := m.watch(ctx, func(tx *redis.Tx) error {
		it, err := readInterest(ctx, tx, interestID)
		if err != nil {
			return err
		}
		if it.ToID != actorID {
			return fmt.Errorf("interest %s: %w", interestID, ErrNotFound)
		}
		if it.Status != models.InterestPending {
			return fmt.Errorf("interest %s is %s: %w", interestID, it.Status, ErrConflict)
		}
		reverse, err := interestByPointer(ctx, tx, interestPairKey(it.ToID, it.FromID))
		if err != nil {
			return err
		}
		connKey, _, _ := connectionKey(it.FromID, it.ToID)

		now := m.now()
		it.Status = models.InterestDeclined
		it.UpdatedAt = now
		it.RespondedAt = &now

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeInterest(ctx, pipe, it)
			// The marker outlives the interest record so a block cascade
			// cannot clear the cooldown.
			pipe.Set(ctx, declinedKey(it.FromID, it.ToID), formatTime(now), m.markerTTL())
			switch {
			case reverse != nil && reverse.Status == models.InterestAccepted:
				// Already connected through the other direction.
			case reverse != nil && reverse.Status == models.InterestPending:
				writeConnection(ctx, pipe, it.FromID, it.ToID, models.ConnectionSentInterest, models.ConnectionStatusPending, it.ToID, now)
			default:
				pipe.Del(ctx, connKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		declined = it
		return nil
	}, interestKey(interestID))
	if err != nil {
		return nil, storeErr("decline interest", err)
	}

	m.notify(models.Notification{
		UserID:     declined.FromID,
		Type:       models.NotificationInterestDeclined,
		ActorID:    declined.ToID,
		InterestID: declined.ID,
	})
	log.Printf("interest %s declined by %s", declined.ID, actorID)
	return declined, nil
}

// RevokeAccess ends a grant early. It is idempotent and leaves the connection
// type alone; only photo visibility changes. Only the granter may revoke.
func (m *InterestManager) RevokeAccess(ctx context.Context, actorID, grantID string) (*models.PhotoAccessGrant, error) {
	actorID = NormalizeUserID(actorID)

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		revoked *models.PhotoAccessGrant
		changed bool
	)
	err := m.watch(ctx, func(tx *redis.Tx) error {
		g, err := readGrant(ctx, tx, grantID)
		if err != nil {
			return err
		}
		if g.GranterID != actorID {
			return fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
		}
		if g.Revoked {
			revoked, changed = g, false
			return nil
		}
		now := m.now()
		g.Revoked = true
		g.RevokedAt = &now
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, grantKey(g.ID), "revoked", formatBool(true), "revokedAt", formatTime(now))
			return nil
		})
		if err != nil {
			return err
		}
		revoked, changed = g, true
		return nil
	}, grantKey(grantID))
	if err != nil {
		return nil, storeErr("revoke access", err)
	}

	if changed {
		m.notify(models.Notification{
			UserID:  revoked.GranteeID,
			Type:    models.NotificationAccessRevoked,
			ActorID: revoked.GranterID,
			GrantID: revoked.ID,
		})
		log.Printf("grant %s revoked by %s", revoked.ID, actorID)
	}
	return revoked, nil
}

// GetInterest returns an interest visible to one of its two parties.
func (m *InterestManager) GetInterest(ctx context.Context, actorID, interestID string) (*models.Interest, error) {
	actorID = NormalizeUserID(actorID)
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	it, err := readInterest(ctx, m.rdb, interestID)
	if err != nil {
		return nil, err
	}
	if it.FromID != actorID && it.ToID != actorID {
		return nil, fmt.Errorf("interest %s: %w", interestID, ErrNotFound)
	}
	return it, nil
}

// GetGrant returns a grant visible to its granter or grantee.
func (m *InterestManager) GetGrant(ctx context.Context, actorID, grantID string) (*models.PhotoAccessGrant, error) {
	actorID = NormalizeUserID(actorID)
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	g, err := readGrant(ctx, m.rdb, grantID)
	if err != nil {
		return nil, err
	}
	if g.GranterID != actorID && g.GranteeID != actorID {
		return nil, fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
	}
	return g, nil
}

// ListInterests enumerates one side's index, newest first.
func (m *InterestManager) ListInterests(ctx context.Context, userID string, box models.InterestBox) ([]models.Interest, error) {
	userID = NormalizeUserID(userID)
	var key string
	switch box {
	case models.InterestBoxSent:
		key = interestsSentKey(userID)
	case models.InterestBoxReceived:
		key = interestsRecvKey(userID)
	default:
		return nil, fmt.Errorf("list interests: %w: box %q", ErrInvalidArgument, box)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	ids, err := m.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr("list interests", err)
	}
	out := make([]models.Interest, 0, len(ids))
	for _, id := range ids {
		it, err := readInterest(ctx, m.rdb, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *InterestManager) inCooldown(declinedAt, now time.Time) bool {
	if m.cooldown < 0 {
		return true
	}
	if declinedAt.IsZero() {
		return false
	}
	return now.Before(declinedAt.Add(m.cooldown))
}

// markerTTL lets Redis reclaim decline markers once the cooldown is over. A
// permanent decline keeps its marker.
func (m *InterestManager) markerTTL() time.Duration {
	if m.cooldown < 0 {
		return 0
	}
	return m.cooldown
}

// notify hands the event to the notification layer without waiting on it.
func (m *InterestManager) notify(n models.Notification) {
	if m.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.notifier.Notify(ctx, n); err != nil {
			log.Printf("notify %s for %s failed: %v", n.Type, n.UserID, err)
		}
	}()
}

func writeInterest(ctx context.Context, pipe redis.Pipeliner, it *models.Interest) {
	fields := map[string]interface{}{
		"id":        it.ID,
		"fromId":    it.FromID,
		"toId":      it.ToID,
		"status":    string(it.Status),
		"createdAt": formatTime(it.CreatedAt),
		"updatedAt": formatTime(it.UpdatedAt),
	}
	if it.RespondedAt != nil {
		fields["respondedAt"] = formatTime(*it.RespondedAt)
	}
	pipe.HSet(ctx, interestKey(it.ID), fields)
}

func readInterest(ctx context.Context, c redis.Cmdable, id string) (*models.Interest, error) {
	if id == "" {
		return nil, fmt.Errorf("get interest: %w", ErrNotFound)
	}
	fields, err := c.HGetAll(ctx, interestKey(id)).Result()
	if err != nil {
		return nil, storeErr("get interest", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("get interest %s: %w", id, ErrNotFound)
	}
	status := models.InterestStatus(fields["status"])
	switch status {
	case models.InterestPending, models.InterestAccepted, models.InterestDeclined:
	default:
		return nil, fmt.Errorf("get interest %s: %w: status %q", id, ErrCorruptRecord, status)
	}
	return &models.Interest{
		ID:          fields["id"],
		FromID:      fields["fromId"],
		ToID:        fields["toId"],
		Status:      status,
		CreatedAt:   parseTime(fields["createdAt"]),
		UpdatedAt:   parseTime(fields["updatedAt"]),
		RespondedAt: parseTimePtr(fields["respondedAt"]),
	}, nil
}

// interestByPointer follows an interest_pair pointer; nil when absent or dangling.
func interestByPointer(ctx context.Context, c redis.Cmdable, pairKey string) (*models.Interest, error) {
	id, err := c.Get(ctx, pairKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get interest pointer", err)
	}
	it, err := readInterest(ctx, c, id)
	if isNotFound(err) {
		return nil, nil
	}
	return it, err
}
