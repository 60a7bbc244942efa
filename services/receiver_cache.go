package services

import (
	"context"
	"strings"
	"time"

	"freshdock/models"
	"freshdock/repositories"

	"github.com/viccon/sturdyc"
	"gorm.io/gorm"
)

// ReceiverCache maps intake tokens to receiver businesses. Misses are not
// cached, so a rotated token stops resolving as soon as it is forgotten.
type ReceiverCache struct {
	cache      *sturdyc.Client[*models.Business]
	businesses *repositories.BusinessRepository
}

func NewReceiverCache(db *gorm.DB, ttl time.Duration) *ReceiverCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReceiverCache{
		cache:      sturdyc.New[*models.Business](2000, 8, ttl, 10),
		businesses: repositories.NewBusinessRepository(db),
	}
}

// Resolve returns ErrNotFound for blank or unknown tokens.
func (c *ReceiverCache) Resolve(ctx context.Context, token string) (*models.Business, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	return c.cache.GetOrFetch(ctx, token, func(ctx context.Context) (*models.Business, error) {
		return c.businesses.GetReceiverByToken(ctx, token)
	})
}

func (c *ReceiverCache) Forget(token string) {
	if token != "" {
		c.cache.Delete(token)
	}
}
