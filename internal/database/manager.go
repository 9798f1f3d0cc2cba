package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bubblesight/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager creates a new database manager with connection pooling
func NewManager(config *Config, log *logrus.Logger) (*Manager, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if config.LogLevel == "debug" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection with pooling
	db, err := gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true, // Improve performance
		PrepareStmt:            true, // Cache prepared statements
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Database and Redis connections established successfully")

	return &Manager{
		DB:     db,
		Redis:  redisClient,
		logger: log,
	}, nil
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.Feedback{},
		&models.Bubble{},
	)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (m *Manager) PingRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Redis.Ping(ctx).Err()
}

// Cache implementation for dashboard aggregates. Bubble and stats payloads
// change only on ingestion, so they are cached briefly and invalidated on
// every successful write.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	BubblesKey = "bubbles:all"
	StatsKey   = "stats:overview"
)

// AggregateTTL bounds staleness of cached dashboard payloads
const AggregateTTL = 30 * time.Second

// CacheBubbles caches the full ordered bubble list
func (c *Cache) CacheBubbles(ctx context.Context, bubbles []models.Bubble) error {
	data, err := json.Marshal(bubbles)
	if err != nil {
		return fmt.Errorf("failed to marshal bubbles: %w", err)
	}
	return c.client.Set(ctx, BubblesKey, data, AggregateTTL).Err()
}

// GetCachedBubbles retrieves the cached bubble list
func (c *Cache) GetCachedBubbles(ctx context.Context) ([]models.Bubble, error) {
	data, err := c.client.Get(ctx, BubblesKey).Result()
	if err != nil {
		return nil, err
	}

	var bubbles []models.Bubble
	err = json.Unmarshal([]byte(data), &bubbles)
	return bubbles, err
}

// CacheStats caches the overview stats payload
func (c *Cache) CacheStats(ctx context.Context, stats *models.StatsResponse) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	return c.client.Set(ctx, StatsKey, data, AggregateTTL).Err()
}

// GetCachedStats retrieves the cached stats payload
func (c *Cache) GetCachedStats(ctx context.Context) (*models.StatsResponse, error) {
	data, err := c.client.Get(ctx, StatsKey).Result()
	if err != nil {
		return nil, err
	}

	var stats models.StatsResponse
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateAggregates drops cached dashboard payloads after a write
func (c *Cache) InvalidateAggregates(ctx context.Context) error {
	return c.client.Del(ctx, BubblesKey, StatsKey).Err()
}
