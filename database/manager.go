package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Manager owns the MongoDB client and caches collection handles. It is
// created once at startup and passed to the components that need it.
type Manager struct {
	client      *mongo.Client
	database    *mongo.Database
	collections map[string]*mongo.Collection
	mu          sync.RWMutex
	config      *Config
	logger      *logrus.Logger
}

type Config struct {
	MongoURI        string
	DatabaseName    string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	ServerTimeout   time.Duration
	SocketTimeout   time.Duration
}

// DefaultConfig returns pool and timeout settings suitable for a single
// service instance.
func DefaultConfig(uri, dbName string) *Config {
	return &Config{
		MongoURI:        uri,
		DatabaseName:    dbName,
		MaxPoolSize:     100,
		MinPoolSize:     5,
		MaxConnIdleTime: 30 * time.Second,
		ConnectTimeout:  10 * time.Second,
		ServerTimeout:   10 * time.Second,
		SocketTimeout:   60 * time.Second,
	}
}

func NewManager(config *Config, logger *logrus.Logger) *Manager {
	return &Manager{
		collections: make(map[string]*mongo.Collection),
		config:      config,
		logger:      logger,
	}
}

// NewManagerFromDatabase wraps an already connected database.
func NewManagerFromDatabase(db *mongo.Database, logger *logrus.Logger) *Manager {
	return &Manager{
		client:      db.Client(),
		database:    db,
		collections: make(map[string]*mongo.Collection),
		logger:      logger,
	}
}

// Connect sets up the database connection with proper configuration
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return fmt.Errorf("database already initialized")
	}

	clientOptions := options.Client().
		ApplyURI(m.config.MongoURI).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize).
		SetMaxConnIdleTime(m.config.MaxConnIdleTime).
		SetServerSelectionTimeout(m.config.ServerTimeout).
		SetSocketTimeout(m.config.SocketTimeout).
		SetConnectTimeout(m.config.ConnectTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	ctx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.DatabaseName)

	m.logger.WithField("database", m.config.DatabaseName).Info("Connected to MongoDB")
	return nil
}

// GetCollection returns a cached collection instance
func (m *Manager) GetCollection(name string) *mongo.Collection {
	m.mu.RLock()
	if collection, exists := m.collections[name]; exists {
		m.mu.RUnlock()
		return collection
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check pattern
	if collection, exists := m.collections[name]; exists {
		return collection
	}

	collection := m.database.Collection(name)
	m.collections[name] = collection
	return collection
}

// GetDatabase returns the database instance
func (m *Manager) GetDatabase() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database
}

// Close gracefully closes the database connection
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	m.client = nil
	m.database = nil
	m.collections = make(map[string]*mongo.Collection)

	m.logger.Info("Database connection closed")
	return nil
}

// HealthCheck verifies database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("database not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}
