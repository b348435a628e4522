// Package counts resolves authoritative image counts. The count of persisted
// image documents is the source of truth; the denormalized counter column and
// the redis key are display caches refreshed opportunistically after
// successful mutations.
package counts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// Counter is the slice of the store this service needs.
type Counter interface {
	CountImagesByLead(ctx context.Context, leadID leads.LeadID) (int, error)
	SetCachedImageCount(ctx context.Context, leadID leads.LeadID, count int) error
}

// Service answers "how many images does this lead really own" and keeps the
// cheap caches in step.
type Service struct {
	store  Counter
	redis  *redis.Client // optional
	ttl    time.Duration
	logger *logging.Logger
}

// NewService creates the count service. The redis client may be nil; caching
// then degrades to the counter column alone.
func NewService(store Counter, rdb *redis.Client, logger *logging.Logger) *Service {
	if store == nil {
		panic("counts: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		redis:  rdb,
		ttl:    5 * time.Minute,
		logger: logger,
	}
}

// WithTTL overrides the redis cache TTL.
func (s *Service) WithTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Authoritative counts persisted image documents for the lead. Every
// capacity decision must use this, never a cached field.
func (s *Service) Authoritative(ctx context.Context, leadID leads.LeadID) (int, error) {
	count, err := s.store.CountImagesByLead(ctx, leadID)
	if err != nil {
		return 0, fmt.Errorf("counts: authoritative count: %w", err)
	}
	return count, nil
}

// AvailableSlots reports the authoritative count and the remaining capacity.
func (s *Service) AvailableSlots(ctx context.Context, leadID leads.LeadID) (count, slots int, err error) {
	count, err = s.Authoritative(ctx, leadID)
	if err != nil {
		return 0, 0, err
	}
	slots = leads.MaxImagesPerLead - count
	if slots < 0 {
		slots = 0
	}
	return count, slots, nil
}

// Refresh recomputes the authoritative count and pushes it into the counter
// column and redis. Cache writes are best effort; a failed cache update is
// logged and never fails the caller, since the next reader falls back to the
// store anyway.
func (s *Service) Refresh(ctx context.Context, leadID leads.LeadID) (int, error) {
	count, err := s.Authoritative(ctx, leadID)
	if err != nil {
		return 0, err
	}
	if err := s.store.SetCachedImageCount(ctx, leadID, count); err != nil {
		s.logger.Warn("failed to update cached image count column", "lead_id", leadID.String(), "error", err)
	}
	s.setRedis(ctx, leadID, count)
	return count, nil
}

// Cached returns the redis-cached count for list views. The second return is
// false on a miss or when redis is not configured.
func (s *Service) Cached(ctx context.Context, leadID leads.LeadID) (int, bool) {
	if s.redis == nil {
		return 0, false
	}
	val, err := s.redis.Get(ctx, cacheKey(leadID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("image count cache read failed", "lead_id", leadID.String(), "error", err)
		}
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (s *Service) setRedis(ctx context.Context, leadID leads.LeadID, count int) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(leadID), count, s.ttl).Err(); err != nil {
		s.logger.Warn("image count cache write failed", "lead_id", leadID.String(), "error", err)
	}
}

// Invalidate drops the redis entry, used after cascade deletes.
func (s *Service) Invalidate(ctx context.Context, leadID leads.LeadID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(leadID)).Err(); err != nil {
		s.logger.Warn("image count cache invalidation failed", "lead_id", leadID.String(), "error", err)
	}
}

func cacheKey(leadID leads.LeadID) string {
	return "lead:" + leadID.String() + ":image_count"
}
