package di

import (
	"context"
	"testing"

	"usuarios-service/internal/config"
	"usuarios-service/internal/usecase/user"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{
			Driver:       "sqlite",
			Name:         ":memory:",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			AutoMigrate:  true,
		},
		App: config.AppConfig{
			HTTPPort:               "8080",
			ShutdownTimeoutSeconds: 5,
			MaxBodyBytes:           1 << 20,
		},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 10, BurstCapacity: 20},
		Logger:    config.LoggerConfig{Level: "info", Format: "console"},
	}
}

func TestNewContainer_WithoutRedis(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Nil(t, c.RedisClient)
	assert.NotNil(t, c.RateLimiter)
	assert.NotNil(t, c.GinHandler)

	ctx := context.Background()
	created, err := c.UserUC.CreateUser(ctx, user.CreateUserRequest{Name: "Ana", Email: "a@x.com", CPF: "111"})
	require.NoError(t, err)

	got, err := c.UserUC.GetUser(ctx, user.GetUserRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
}

func TestNewContainer_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port(), CacheTTL: 60}

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, c.RedisClient)

	ctx := context.Background()
	created, err := c.UserUC.CreateUser(ctx, user.CreateUserRequest{Name: "Ana", Email: "a@x.com", CPF: "111"})
	require.NoError(t, err)

	_, err = c.UserUC.GetUser(ctx, user.GetUserRequest{ID: created.ID})
	require.NoError(t, err)

	// reads by id go through the cache
	assert.NotEmpty(t, mr.Keys())
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DB.Driver = "oracle"

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "config validation failed")
}
