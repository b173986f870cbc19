package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ms-venues/internal/logger"

	"github.com/go-redis/redis/v8"
)

const staffVerdictPrefix = "staff_verdict:"

// StaffCache remembers staff verdicts in Redis for a short TTL so every admin
// request does not hit the identity table. Flag changes take effect once the
// cached verdict expires.
type StaffCache struct {
	Checker StaffChecker
	Client  *redis.Client
	TTL     time.Duration
	Log     *logger.Logger
}

func NewStaffCache(checker StaffChecker, client *redis.Client, ttl time.Duration, log *logger.Logger) *StaffCache {
	return &StaffCache{Checker: checker, Client: client, TTL: ttl, Log: log}
}

func staffVerdictKey(email string) string {
	return staffVerdictPrefix + strings.ToLower(email)
}

// IsStaffEmail serves cached verdicts and falls through to the checker on a
// miss. A Redis outage degrades to uncached lookups.
func (c *StaffCache) IsStaffEmail(ctx context.Context, email string) (bool, error) {
	key := staffVerdictKey(email)
	cached, err := c.Client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if verdict, perr := strconv.ParseBool(cached); perr == nil {
			return verdict, nil
		}
	case err != redis.Nil:
		c.Log.Warn("AUTH", fmt.Sprintf("staff cache read failed: %v", err))
	}

	verdict, err := c.Checker.IsStaffEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if err := c.Client.Set(ctx, key, strconv.FormatBool(verdict), c.TTL).Err(); err != nil {
		c.Log.Warn("AUTH", fmt.Sprintf("staff cache write failed: %v", err))
	}
	return verdict, nil
}

// Forget drops the cached verdict for email.
func (c *StaffCache) Forget(ctx context.Context, email string) error {
	if err := c.Client.Del(ctx, staffVerdictKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to drop staff verdict: %w", err)
	}
	return nil
}
