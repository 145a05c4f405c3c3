// Package bootstrap connects the external services named in the config and
// assembles the platform the gateway runs against.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/events"
	"snapgram/internal/gateway"
	"snapgram/internal/identity"
	"snapgram/internal/observability"
	"snapgram/internal/query"
	"snapgram/internal/repository"
	"snapgram/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds every connection opened at startup.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Cache   *cache.Cache
	Files   storage.BlobStore
	Events  events.Publisher
	Gateway *gateway.Gateway
	// Queries caches list reads for the lifetime of the process.
	Queries *query.Client
}

// InitRuntime connects to the database, Redis, blob storage and the event
// broker. Redis, storage and Kafka degrade to in-process fallbacks outside
// production when they are not configured.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rc := cache.Connect(cfg.RedisURL)
	c := cache.New(rc)

	files, err := NewBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob storage initialization failed: %w", err)
	}

	pub := NewPublisher(cfg)
	rt := &Runtime{
		DB:      db,
		Redis:   rc,
		Cache:   c,
		Files:   files,
		Events:  pub,
		Gateway: gateway.New(NewPlatform(cfg, db, c, files, pub)),
		Queries: NewQueryClient(cfg),
	}
	return rt, nil
}

// NewPlatform wires the gateway's collaborators over db.
func NewPlatform(cfg *config.Config, db *gorm.DB, c *cache.Cache, files storage.BlobStore, pub events.Publisher) gateway.Platform {
	return gateway.Platform{
		Identity: identity.NewProvider(db, c, identity.Options{
			Secret:     cfg.JWTSecret,
			SessionTTL: cfg.SessionTTL(),
		}),
		Users:          repository.NewUserRepository(db, c),
		Posts:          repository.NewPostRepository(db, c),
		Saves:          repository.NewSaveRepository(db),
		Follows:        repository.NewFollowRepository(db),
		Files:          files,
		Events:         pub,
		PublicURL:      cfg.PublicURL,
		MaxUploadBytes: int64(cfg.MaxUploadSizeMB) << 20,
		PageSize:       cfg.PageSize,
	}
}

// NewBlobStore returns a MinIO store when STORAGE_ENDPOINT is set and an
// in-memory store otherwise.
func NewBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageEndpoint == "" {
		if cfg.IsProduction() {
			return nil, errors.New("STORAGE_ENDPOINT is required in production")
		}
		observability.Logger.Warn("STORAGE_ENDPOINT not set; files are kept in memory", "bucket", cfg.StorageBucket)
		return storage.NewMemoryStore(cfg.StorageBucket), nil
	}

	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		UseSSL:    cfg.StorageUseSSL,
		Bucket:    cfg.StorageBucket,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured.
func NewPublisher(cfg *config.Config) events.Publisher {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
}

// NewQueryClient returns the list-read cache. LIST_CACHE_TTL_SECONDS bounds
// how long an entry is served before it is fetched again.
func NewQueryClient(cfg *config.Config) *query.Client {
	var opts []query.Option
	if cfg.ListCacheTTLSeconds > 0 {
		opts = append(opts, query.WithStaleTime(time.Duration(cfg.ListCacheTTLSeconds)*time.Second))
	}
	return query.NewClient(opts...)
}

// Close releases the runtime's connections.
func (r *Runtime) Close() error {
	var errs []error
	if r.Events != nil {
		errs = append(errs, r.Events.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
