package services

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const onlineSetKey = "fitlink:online_users"

// PresenceService tracks which users currently hold a live connection. A nil
// receiver is a disabled no-op service, used when no Redis address is
// configured.
type PresenceService struct {
	redis *redis.Client
}

func NewPresenceService(redisAddr string) *PresenceService {
	if redisAddr == "" {
		return nil
	}
	return &PresenceService{
		redis: redis.NewClient(&redis.Options{Addr: redisAddr}),
	}
}

func (s *PresenceService) SetOnline(ctx context.Context, userID int64) error {
	if s == nil {
		return nil
	}
	return s.redis.SAdd(ctx, onlineSetKey, strconv.FormatInt(userID, 10)).Err()
}

func (s *PresenceService) SetOffline(ctx context.Context, userID int64) error {
	if s == nil {
		return nil
	}
	return s.redis.SRem(ctx, onlineSetKey, strconv.FormatInt(userID, 10)).Err()
}

func (s *PresenceService) IsOnline(ctx context.Context, userID int64) (bool, error) {
	if s == nil {
		return false, nil
	}
	return s.redis.SIsMember(ctx, onlineSetKey, strconv.FormatInt(userID, 10)).Result()
}
