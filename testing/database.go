// Package testing provides test utilities, fakes and database setup for the blink store tests
package testing

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/amirphl/avax-blinks/models"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrTestDBNotConfigured is returned when TEST_DB_HOST is not set
var ErrTestDBNotConfigured = errors.New("test database not configured: set TEST_DB_HOST")

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables
func GetTestDBConfig() *TestDBConfig {
	return &TestDBConfig{
		Host:     getEnv("TEST_DB_HOST", ""),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
}

func (c *TestDBConfig) dsn(dbName string) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
	if dbName != "" {
		dsn += " dbname=" + dbName
	}
	return dsn
}

// TestDB represents a test database instance
type TestDB struct {
	DB     *gorm.DB
	Name   string
	config *TestDBConfig
}

// SetupTestDB creates a uniquely named PostgreSQL database and migrates the kv_entries table
func SetupTestDB() (*TestDB, error) {
	config := GetTestDBConfig()
	if config.Host == "" {
		return nil, ErrTestDBNotConfigured
	}

	dbName := fmt.Sprintf("blinks_test_%d_%d", time.Now().Unix(), rand.Intn(10000))

	admin, err := sql.Open("postgres", config.dsn(""))
	if err != nil {
		return nil, fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer admin.Close()

	if err := admin.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if _, err := admin.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}

	testDB, err := gorm.Open(postgres.Open(config.dsn(dbName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database %s: %w", dbName, err)
	}

	tdb := &TestDB{DB: testDB, Name: dbName, config: config}
	if err := testDB.AutoMigrate(&models.KVEntry{}); err != nil {
		_ = tdb.TeardownTestDB()
		return nil, fmt.Errorf("failed to migrate test database %s: %w", dbName, err)
	}

	return tdb, nil
}

// SetupSQLiteDB opens a private in-memory SQLite database with kv_entries migrated
func SetupSQLiteDB() (*gorm.DB, error) {
	name := fmt.Sprintf("file:blinks_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), rand.Intn(10000))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return db, nil
}

// TeardownTestDB drops the test database and closes connections
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	if sqlDB, err := tdb.DB.DB(); err == nil {
		sqlDB.Close()
	}

	admin, err := sql.Open("postgres", tdb.config.dsn(""))
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL for cleanup: %v", err)
		return err
	}
	defer admin.Close()

	if _, err := admin.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
		tdb.Name); err != nil {
		log.Printf("Warning: failed to terminate connections to test database %s: %v", tdb.Name, err)
	}

	if _, err := admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.Name)); err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
		return err
	}

	return nil
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	if err := tdb.DB.Exec("TRUNCATE TABLE kv_entries").Error; err != nil {
		return fmt.Errorf("failed to truncate table kv_entries: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// TestWithDB sets up a PostgreSQL test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}
