package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/config"
)

var DB *gorm.DB

// Init opens the SQLite database named by the configured DSN. It is
// only called when the quota store is configured for persistence; the
// default "memory" DSN never touches this package. A DSN of
// ":memory:" opens a shared in-memory SQLite database, which is what
// the tests use.
func Init() (*gorm.DB, error) {
	var err error
	dsn := config.AppConfig.Database.DSN

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	gormConfig := &gorm.Config{
		Logger: gormLogger,
	}

	if dsn == ":memory:" {
		log.Println("INFO: [Database] Initializing in-memory SQLite database.")
		DB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), gormConfig)
	} else {
		log.Printf("INFO: [Database] Initializing file-based SQLite database at DSN: '%s'.", dsn)
		dbDir := filepath.Dir(dsn)
		if dbDir != "." && dbDir != "/" {
			if _, statErr := os.Stat(dbDir); os.IsNotExist(statErr) {
				log.Printf("INFO: [Database] Database directory '%s' does not exist, attempting to create.", dbDir)
				if mkdirErr := os.MkdirAll(dbDir, 0755); mkdirErr != nil {
					log.Printf("ERROR: [Database] Failed to create database directory '%s': %v", dbDir, mkdirErr)
					return nil, fmt.Errorf("failed to create database directory '%s': %w", dbDir, mkdirErr)
				}
			}
		}
		DB, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	}

	if err != nil {
		log.Printf("ERROR: [Database] Failed to connect to database (DSN: '%s'): %v", dsn, err)
		return nil, fmt.Errorf("failed to connect to database (DSN: '%s'): %w", dsn, err)
	}

	log.Println("INFO: [Database] Database connection established successfully.")
	return DB, nil
}

// GetDB returns the global database instance.
// It panics if DB has not been initialized via Init().
func GetDB() *gorm.DB {
	if DB == nil {
		log.Fatal("FATAL: [Database] Database instance has not been initialized. Call database.Init() first.")
	}
	return DB
}
