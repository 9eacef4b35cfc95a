package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"alcyxob/flexcoach/internal/domain"
)

const (
	roleKey    = "flexRole"
	accountKey = "flexAccountId"
)

// OfflineCache is the last known-good entity set, kept in one named slot
// and overwritten wholesale on every flush.
type OfflineCache struct {
	kv   KV
	slot string
}

// NewOfflineCache binds the cache to slot inside kv.
func NewOfflineCache(kv KV, slot string) *OfflineCache {
	return &OfflineCache{kv: kv, slot: slot}
}

// Load reads the snapshot back. A missing or unreadable slot yields an empty
// snapshot and ok=false; decode failures are logged, never returned.
func (c *OfflineCache) Load(ctx context.Context) (snap domain.Snapshot, ok bool) {
	empty := domain.Snapshot{}.Normalized()

	payload, found, err := c.kv.Get(ctx, c.slot)
	if err != nil {
		log.Printf("WARN: offline cache read failed: %v", err)
		return empty, false
	}
	if !found {
		return empty, false
	}
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("WARN: offline cache slot %q is malformed, starting empty: %v", c.slot, err)
		return empty, false
	}
	return snap.Normalized(), true
}

// Save overwrites the slot with snap.
func (c *OfflineCache) Save(ctx context.Context, snap domain.Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.kv.Put(ctx, c.slot, payload)
}

// Clear drops the snapshot and the persisted session.
func (c *OfflineCache) Clear(ctx context.Context) error {
	for _, key := range []string{c.slot, roleKey, accountKey} {
		if err := c.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession persists the selected role and account id.
func (c *OfflineCache) SaveSession(ctx context.Context, role domain.Role, accountID string) error {
	if err := c.kv.Put(ctx, roleKey, []byte(role)); err != nil {
		return err
	}
	if accountID == "" {
		return c.kv.Delete(ctx, accountKey)
	}
	return c.kv.Put(ctx, accountKey, []byte(accountID))
}

// LoadSession returns the persisted role (coach when unset or invalid) and
// account id.
func (c *OfflineCache) LoadSession(ctx context.Context) (domain.Role, string) {
	role := domain.RoleCoach
	if raw, ok, err := c.kv.Get(ctx, roleKey); err == nil && ok && domain.Role(raw).Valid() {
		role = domain.Role(raw)
	}
	var account string
	if raw, ok, err := c.kv.Get(ctx, accountKey); err == nil && ok {
		account = string(raw)
	}
	return role, account
}
