package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/veris-salud/agenda-web/internal/config"
	"github.com/veris-salud/agenda-web/internal/pagetoken"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStateStore picks where page snapshots live: Redis when a client is
// available, process memory otherwise.
func BuildStateStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) scheduling.StateStore {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := scheduling.DefaultStateTTL
	if cfg != nil && cfg.PageStateTTL > 0 {
		ttl = cfg.PageStateTTL
	}
	if redisClient != nil {
		logger.Info("page state store: redis", "ttl", ttl.String())
		return scheduling.NewRedisStateStore(redisClient, ttl)
	}
	logger.Info("page state store: memory", "ttl", ttl.String())
	return scheduling.NewMemoryStateStore(ttl)
}

// BuildPageSigner returns the page token signer, or nil when no secret is set.
func BuildPageSigner(cfg *appconfig.Config, logger *logging.Logger) *pagetoken.Signer {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	signer := pagetoken.NewSigner(cfg.PageTokenSecret, pagetoken.DefaultTTL)
	if signer == nil {
		if cfg.Env == "production" {
			logger.Warn("PAGE_TOKEN_SECRET not set; pages connect unauthenticated")
		}
		return nil
	}
	return signer
}
