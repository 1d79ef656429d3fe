package data

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collablink/collab-comms/src/api/types"
)

const (
	unreadPrefix = "unread:"
	unreadTTL    = 5 * time.Minute

	// Delivery workers (email/push/in-app) consume this stream; the
	// durable source of truth stays in the notifications table.
	streamNotifications = "collabcomms.notifications"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// StreamPublisher pushes persisted notifications onto the redis stream
// for the delivery side. Implements engine.Publisher.
type StreamPublisher struct {
	rdb *redis.Client
}

func NewStreamPublisher(rdb *redis.Client) *StreamPublisher {
	return &StreamPublisher{rdb: rdb}
}

func (p *StreamPublisher) PublishNotification(ctx context.Context, n *types.Notification) error {
	values := map[string]any{
		"id":      n.ID,
		"user_id": n.UserID,
		"type":    string(n.Type),
		"title":   n.Title,
		"content": n.Content,
		"time":    n.CreatedAt.Unix(),
	}
	if n.ProposalID != nil {
		values["proposal_id"] = *n.ProposalID
	}
	_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamNotifications,
		Values: values,
	}).Result()
	return err
}

// UnreadCache is a read-through cache of per-viewer unread counts, keyed
// by (proposal, viewer). Entries expire on their own and are dropped
// whenever the thread changes. Implements engine.UnreadCache.
type UnreadCache struct {
	rdb *redis.Client
}

func NewUnreadCache(rdb *redis.Client) *UnreadCache {
	return &UnreadCache{rdb: rdb}
}

func unreadKey(proposalID, viewerID uint64) string {
	return fmt.Sprintf("%s%d:%d", unreadPrefix, proposalID, viewerID)
}

func (c *UnreadCache) Get(ctx context.Context, proposalID, viewerID uint64) (int64, bool) {
	n, err := c.rdb.Get(ctx, unreadKey(proposalID, viewerID)).Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *UnreadCache) Set(ctx context.Context, proposalID, viewerID uint64, n int64) {
	if err := c.rdb.Set(ctx, unreadKey(proposalID, viewerID), n, unreadTTL).Err(); err != nil {
		log.Printf("unread cache set: %v", err)
	}
}

// Invalidate drops the cached counts for both parties of the proposal.
func (c *UnreadCache) Invalidate(ctx context.Context, proposalID uint64) {
	pattern := fmt.Sprintf("%s%d:*", unreadPrefix, proposalID)
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		log.Printf("unread cache scan: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("unread cache invalidate: %v", err)
		}
	}
}
