package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// ConnectionStore keeps one canonical hash per unordered user pair. There is
// no per-side copy to reconcile; perspective is derived from the initiator.
type ConnectionStore struct {
	store
}

func NewConnectionStore(rdb *redis.Client, timeout time.Duration, now func() time.Time) *ConnectionStore {
	return &ConnectionStore{store: newStore(rdb, timeout, now)}
}

// Record returns the canonical record, or nil when the pair has none.
func (s *ConnectionStore) Record(ctx context.Context, a, b string) (*models.ConnectionRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return readConnection(ctx, s.rdb, NormalizeUserID(a), NormalizeUserID(b))
}

// GetConnection resolves the relationship as seen by viewer.
func (s *ConnectionStore) GetConnection(ctx context.Context, viewerID, ownerID string) (models.ConnectionType, error) {
	viewerID, ownerID = NormalizeUserID(viewerID), NormalizeUserID(ownerID)
	if viewerID == "" || ownerID == "" || viewerID == ownerID {
		return models.ConnectionNone, nil
	}
	rec, err := s.Record(ctx, viewerID, ownerID)
	if err != nil {
		return models.ConnectionNone, err
	}
	return rec.TypeFor(viewerID), nil
}

// AreConnected is true when the resolved type is mutual_interest, matched or
// connected.
func (s *ConnectionStore) AreConnected(ctx context.Context, id1, id2 string) (bool, error) {
	t, err := s.GetConnection(ctx, id1, id2)
	if err != nil {
		return false, err
	}
	return t.IsConnected(), nil
}

// SetConnection upserts the pair record. It is idempotent: repeating the same
// call leaves the same state and keeps the original createdAt.
// received_interest is stored as sent_interest initiated by the other side;
// none deletes the record.
func (s *ConnectionStore) SetConnection(ctx context.Context, fromID, toID string, t models.ConnectionType, status models.ConnectionStatus) error {
	fromID, toID = NormalizeUserID(fromID), NormalizeUserID(toID)
	if fromID == "" || toID == "" || fromID == toID {
		return fmt.Errorf("set connection: %w", ErrInvalidArgument)
	}
	if _, err := models.ParseConnectionType(string(t)); err != nil {
		return fmt.Errorf("set connection: %w: %v", ErrInvalidArgument, err)
	}
	if _, err := models.ParseConnectionStatus(string(status)); err != nil {
		return fmt.Errorf("set connection: %w: %v", ErrInvalidArgument, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if t == models.ConnectionNone {
		key, _, _ := connectionKey(fromID, toID)
		return storeErr("set connection", s.rdb.Del(ctx, key).Err())
	}
	initiator := fromID
	if t == models.ConnectionReceivedInterest {
		t, initiator = models.ConnectionSentInterest, toID
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		writeConnection(ctx, pipe, fromID, toID, t, status, initiator, s.now())
		return nil
	})
	return storeErr("set connection", err)
}

// writeConnection queues the upsert on a pipeline so lifecycle transactions
// can include it.
func writeConnection(ctx context.Context, pipe redis.Pipeliner, a, b string, t models.ConnectionType, status models.ConnectionStatus, initiator string, now time.Time) {
	key, _, _ := connectionKey(a, b)
	pipe.HSet(ctx, key,
		"type", string(t),
		"status", string(status),
		"initiator", initiator,
		"updatedAt", formatTime(now),
	)
	pipe.HSetNX(ctx, key, "createdAt", formatTime(now))
}

func readConnection(ctx context.Context, c redis.Cmdable, a, b string) (*models.ConnectionRecord, error) {
	key, lo, hi := connectionKey(a, b)
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr("get connection", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	t, err := models.ParseConnectionType(fields["type"])
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w: %v", key, ErrCorruptRecord, err)
	}
	status, err := models.ParseConnectionStatus(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w: %v", key, ErrCorruptRecord, err)
	}
	return &models.ConnectionRecord{
		UserA:     lo,
		UserB:     hi,
		Type:      t,
		Status:    status,
		Initiator: fields["initiator"],
		CreatedAt: parseTime(fields["createdAt"]),
		UpdatedAt: parseTime(fields["updatedAt"]),
	}, nil
}
