// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// denylist.go provides a Valkey-backed store of revoked access token ids.
// Logout writes the token's jti here with a TTL matching the token's
// remaining lifetime; the auth middleware rejects tokens whose jti is
// present. Entries expire on their own once the token itself would have.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// denyKeyPrefix is the Valkey key prefix for revoked token ids.
const denyKeyPrefix = "deny:"

// Denylist tracks revoked access tokens in Valkey.
type Denylist struct {
	client *redis.Client
}

// NewDenylist creates a denylist backed by the given Valkey client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks a token id as revoked until the token's expiry. Tokens
// already past expiry need no entry at all.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denyKeyPrefix+tokenID, "1", ttl).Err()
}

// Revoked reports whether a token id has been revoked. Lookup failures
// are logged and treated as not-revoked so a Valkey outage does not
// lock every user out.
func (d *Denylist) Revoked(ctx context.Context, tokenID string) bool {
	err := d.client.Get(ctx, denyKeyPrefix+tokenID).Err()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		slog.Warn("denylist lookup error", "error", err)
		return false
	}
	return true
}
