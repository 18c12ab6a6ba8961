package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CLIENT_URL", "https://app.example.com/")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "https://app.example.com", cfg.ClientURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "/", cfg.Cookie.Path)
	assert.True(t, cfg.Cookie.HTTPOnly)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSite)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "account.events", cfg.Events.Queue)
	assert.False(t, cfg.UserCache.Enabled)
}

func TestLoadReportsEveryMissingKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadMongoRequiresURI(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "accounts", cfg.MongoDB)
}

func TestLoadRejectsUnknownDriverAndSameSite(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("COOKIE_SAME_SITE", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "COOKIE_SAME_SITE")
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_TTL_MIN", "30")
	t.Setenv("COOKIE_SAME_SITE", "strict")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("USER_CACHE_ENABLED", "true")
	t.Setenv("USER_CACHE_TTL", "90s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookie.SameSite)
	assert.False(t, cfg.Cookie.Secure)
	assert.True(t, cfg.UserCache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.UserCache.TTL)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.Events.URL)
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_TTL_MIN", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL_MIN")
}

func TestEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, envBool("SOME_FLAG", true))
	t.Setenv("SOME_FLAG", "off")
	assert.False(t, envBool("SOME_FLAG", true))
}
