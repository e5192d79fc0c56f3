package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// EntitlementCache stores company entitlement sets as JSON blobs with a TTL.
// A miss is reported as repository.ErrNotFound so the caller falls through to
// PostgreSQL.
type EntitlementCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewEntitlementCache constructs a Redis-backed entitlement cache.
func NewEntitlementCache(client *redis.Client, prefix string, ttl time.Duration) *EntitlementCache {
	if prefix == "" {
		prefix = "entitlements:company"
	}
	return &EntitlementCache{client: client, prefix: prefix, ttl: ttl}
}

type cachedEntitlement struct {
	CompanyID        string              `json:"company_id"`
	ModuleIDs        []string            `json:"module_ids"`
	SubItemsByModule map[string][]string `json:"sub_items_by_module"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Get loads a cached entitlement set.
func (c *EntitlementCache) Get(ctx context.Context, companyID string) (*domain.EntitlementSet, error) {
	raw, err := c.client.Get(ctx, c.key(companyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get entitlement: %w", err)
	}

	var cached cachedEntitlement
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cached entitlement: %w", err)
	}

	set := domain.NewEntitlementSet(cached.CompanyID, cached.ModuleIDs, cached.SubItemsByModule)
	set.UpdatedAt = cached.UpdatedAt

	return &set, nil
}

// Set stores an entitlement set under the company key.
func (c *EntitlementCache) Set(ctx context.Context, set domain.EntitlementSet) error {
	cached := cachedEntitlement{
		CompanyID:        set.CompanyID,
		ModuleIDs:        make([]string, 0, len(set.ModuleIDs)),
		SubItemsByModule: make(map[string][]string, len(set.SubItemsByModule)),
		UpdatedAt:        set.UpdatedAt,
	}
	for moduleID := range set.ModuleIDs {
		cached.ModuleIDs = append(cached.ModuleIDs, moduleID)
	}
	for moduleID, subs := range set.SubItemsByModule {
		ids := make([]string, 0, len(subs))
		for id := range subs {
			ids = append(ids, id)
		}
		cached.SubItemsByModule[moduleID] = ids
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal entitlement for cache: %w", err)
	}

	if err := c.client.Set(ctx, c.key(set.CompanyID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set entitlement: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry after an entitlement write.
func (c *EntitlementCache) Invalidate(ctx context.Context, companyID string) error {
	if err := c.client.Del(ctx, c.key(companyID)).Err(); err != nil {
		return fmt.Errorf("redis del entitlement: %w", err)
	}
	return nil
}

func (c *EntitlementCache) key(companyID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, companyID)
}

var _ port.EntitlementCache = (*EntitlementCache)(nil)
