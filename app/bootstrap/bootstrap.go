// Package bootstrap wires configuration into storage backends, services and flows
// for the API server and the blinkctl CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amirphl/avax-blinks/app/middleware"
	"github.com/amirphl/avax-blinks/app/services"
	businessflow "github.com/amirphl/avax-blinks/business_flow"
	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
)

// Storage is an opened key-value backend
type Storage struct {
	Store   repository.KeyValueStore
	Backend string
	closers []func()
}

// Close releases the backend's connections and background monitors
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStorage opens the backend selected by cfg.Storage.Backend
func OpenStorage(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Storage, error) {
	s := &Storage{Backend: cfg.Storage.Backend}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		s.Store = repository.NewMemoryKeyValueStore()

	case config.StorageRedis:
		rc, err := InitializeCache(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = rc.Close() })
		s.closers = append(s.closers, StartCacheHealthMonitor(ctx, rc, cfg.Cache.HealthCheckInterval, logger))
		s.Store = repository.NewRedisKeyValueStore(rc, cfg.Cache.RedisPrefix)

	case config.StoragePostgres:
		db, err := InitializeDatabase(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeGorm(db))
		if cfg.Database.AutoMigrate {
			if err := repository.MigrateKeyValueSchema(db); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.Store = repository.NewSQLKeyValueStore(db)

	case config.StorageSQLite:
		db, err := InitializeSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeGorm(db))
		if err := repository.MigrateKeyValueSchema(db); err != nil {
			s.Close()
			return nil, err
		}
		s.Store = repository.NewSQLKeyValueStore(db)

	case config.StorageDynamoDB:
		store, err := InitializeDynamo(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		s.Store = store

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	logger.Info("Record store ready", zap.String("backend", s.Backend))
	return s, nil
}

// InitializeDatabase initializes the database connection with connection pooling
func InitializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// InitializeSQLite opens a file backed database for single-node deployments
func InitializeSQLite(cfg config.SQLiteConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.Path, err)
	}
	return db, nil
}

func closeGorm(db *gorm.DB) func() {
	return func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// InitializeCache initializes the Redis client and verifies connectivity
func InitializeCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.RedisDB != 0 {
		opt.DB = cfg.RedisDB
	}

	rc := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return rc, nil
}

// StartCacheHealthMonitor periodically pings Redis. The returned function stops the monitor.
func StartCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// InitializeDynamo builds a DynamoDB backed store and checks that its table exists
func InitializeDynamo(ctx context.Context, cfg config.DynamoDBConfig) (*repository.DynamoKeyValueStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	store := repository.NewDynamoKeyValueStore(client, cfg.Table)
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.CheckTable(checkCtx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewEventPublisher returns the AMQP publisher when events are enabled
func NewEventPublisher(cfg config.EventsConfig, logger *zap.Logger) (services.EventPublisher, error) {
	if !cfg.Enabled {
		return services.NoopEventPublisher{}, nil
	}
	p, err := services.NewAMQPEventPublisher(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Event publisher connected", zap.String("queue", cfg.Queue))
	return p, nil
}

// NewLinkRecordRepository wraps store with logging and the store error counter
func NewLinkRecordRepository(store repository.KeyValueStore, logger *zap.Logger) repository.LinkRecordRepository {
	return repository.NewLinkRecordRepository(store, logger, middleware.ObserveStoreError)
}

// NewBlinkFlow builds the composer and flow for the configured platform table
func NewBlinkFlow(cfg config.BlinksConfig, records repository.LinkRecordRepository, publisher services.EventPublisher, logger *zap.Logger) (businessflow.BlinkFlow, *models.PlatformTable, error) {
	table, err := models.BuiltinPlatformTable(cfg.PlatformTable)
	if err != nil {
		return nil, nil, err
	}
	composer := businessflow.NewLinkComposer(cfg.RedirectBase, table, nil)
	flow := businessflow.NewBlinkFlow(composer, table, records, publisher, logger, cfg.GenerationDelay, nil, middleware.ObserveBlinkGenerated)
	return flow, table, nil
}
