package config

import "time"

// UserCacheConfig defines settings for the Redis user cache. When Enabled is
// false or Redis is unreachable, reads go straight to the store.
type UserCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadUserCacheConfig reads USER_CACHE_* variables, using defaults for unset ones.
func LoadUserCacheConfig() UserCacheConfig {
	return UserCacheConfig{
		Enabled: envBool("USER_CACHE_ENABLED", false),
		TTL:     envDur("USER_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("USER_CACHE_PREFIX", "accounts"),
	}
}
