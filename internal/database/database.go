package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database wraps the gorm handle with the queries used by the matcher.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects to the configured driver. SQLite connections run with
// foreign keys on and a single open connection.
func Open(driver, dsn string, logger *logrus.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = logrus.New()
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver != DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)

		// Enable foreign keys
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// NewDatabase opens the database and runs the schema migrations.
func NewDatabase(driver, dsn string, logger *logrus.Logger) (*Database, error) {
	db, err := Open(driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	d := New(db, logger)
	if err := d.RunMigrations(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func New(db *gorm.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.New()
	}
	return &Database{db: db, logger: logger}
}

// NewTestDB opens a private in-memory SQLite database.
func NewTestDB() (*gorm.DB, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return Open(DriverSQLite, "file::memory:", logger)
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
