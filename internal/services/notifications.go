package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/mq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Notifier receives lifecycle events after a successful mutation. The core
// never depends on delivery succeeding.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

const (
	NotificationsCollection = "notifications"

	notifyChannelPrefix   = "notify:user:"
	notifyRecentKeyPrefix = "notifications:"
	notifyRecentKeySuffix = ":recent"
	notifyRecentMaxLen    = 50
	notifyRecentTTL       = 24 * time.Hour
)

func notifyChannel(userID string) string { return notifyChannelPrefix + userID }

func notifyRecentKey(userID string) string {
	return notifyRecentKeyPrefix + userID + notifyRecentKeySuffix
}

// NotificationService fans events out to MongoDB (history), a capped Redis
// list (recent), Redis pub/sub (live sockets) and optionally NSQ.
type NotificationService struct {
	rdb      *redis.Client
	col      *mongo.Collection
	producer *mq.Producer
}

// NewNotificationService accepts nil for any sink that is not configured.
func NewNotificationService(rdb *redis.Client, col *mongo.Collection, producer *mq.Producer) *NotificationService {
	return &NotificationService{rdb: rdb, col: col, producer: producer}
}

// EnsureNotificationIndexes configures the (user_id, created_at) index used
// by history pagination. Called on startup after Mongo has connected.
func EnsureNotificationIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	})
	return err
}

// Notify writes to every configured sink and returns the joined failures.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var errs []error
	if s.col != nil {
		if _, err := s.col.InsertOne(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("mongo: %w", err))
		}
	}
	if s.rdb != nil {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		key := notifyRecentKey(n.UserID)
		pipe := s.rdb.Pipeline()
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, notifyRecentMaxLen-1)
		pipe.Expire(ctx, key, notifyRecentTTL)
		pipe.Publish(ctx, notifyChannel(n.UserID), data)
		if _, err := pipe.Exec(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.producer != nil {
		if err := s.producer.PublishJSON(n); err != nil {
			errs = append(errs, fmt.Errorf("nsq: %w", err))
		}
	}
	return errors.Join(errs...)
}

// List returns a user's notifications newest first. The first page comes from
// the Redis recent list when it is warm; older pages and misses go to Mongo.
func (s *NotificationService) List(ctx context.Context, userID string, before *time.Time, limit int64) ([]models.Notification, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	userID = NormalizeUserID(userID)

	if before == nil && limit <= notifyRecentMaxLen && s.rdb != nil {
		if cached, ok := s.recent(ctx, userID); ok {
			hasMore := int64(len(cached)) > limit
			if hasMore {
				cached = cached[:limit]
			}
			return cached, hasMore, nil
		}
	}
	if s.col == nil {
		return nil, false, nil
	}

	filter := bson.M{"user_id": userID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	for cur.Next(ctx) {
		var n models.Notification
		if err := cur.Decode(&n); err != nil {
			continue
		}
		out = append(out, n)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(out)) > limit
	if hasMore {
		out = out[:limit]
	}
	if before == nil && len(out) > 0 && s.rdb != nil {
		s.warmRecent(ctx, userID, out)
	}
	return out, hasMore, nil
}

// MarkRead flags one notification as read for its owner.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if s.col == nil {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("mark read: %w", ErrInvalidArgument)
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": NormalizeUserID(userID)},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	// The cached copy still says unread; drop it so the next read refills.
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, notifyRecentKey(NormalizeUserID(userID))).Err()
	}
	return nil
}

func (s *NotificationService) recent(ctx context.Context, userID string) ([]models.Notification, bool) {
	raw, err := s.rdb.LRange(ctx, notifyRecentKey(userID), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	out := make([]models.Notification, 0, len(raw))
	for _, r := range raw {
		var n models.Notification
		if json.Unmarshal([]byte(r), &n) != nil {
			continue
		}
		out = append(out, n)
	}
	return out, true
}

func (s *NotificationService) warmRecent(ctx context.Context, userID string, items []models.Notification) {
	key := notifyRecentKey(userID)
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	for _, n := range items {
		data, err := json.Marshal(n)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, notifyRecentMaxLen-1)
	pipe.Expire(ctx, key, notifyRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("notifications: warm failed for %s: %v", userID, err)
	}
}
