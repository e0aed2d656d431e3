package models

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/shared"
	"github.com/Daskott/safenest/utils"
	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DB_NAME = "safenest.db"

	SQLITE_DB   = "sqlite"
	MYSQL_DB    = "mysql"
	POSTGRES_DB = "postgres"
)

var logg = logger.NewLogger()

// Store is the single handle to the relational store. It is created once at
// startup and passed to every component that reads or writes records.
type Store struct {
	db           *gorm.DB
	dialect      string
	sqliteDbPath string
}

// Open connects to the database described by dbConfig. For sqlite the encrypted
// db file lives in '<dbRootDir>/db/safenest.db'.
func Open(dbConfig shared.DatabaseConfig, sqliteConfig shared.SqliteConfig, dbRootDir string) (*Store, error) {
	var dialector gorm.Dialector
	store := &Store{dialect: strings.ToLower(dbConfig.Type)}

	switch store.dialect {
	case SQLITE_DB, "":
		store.dialect = SQLITE_DB
		if strings.TrimSpace(sqliteConfig.PassPhrase) == "" {
			return nil, fmt.Errorf("sqlite.passPhrase is required for sqlite databases")
		}

		dbPath, err := SqliteDbPath(dbRootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
		}
		store.sqliteDbPath = dbPath
		dialector = sqliteEncrypt.Open(sqliteDSN(dbPath, sqliteConfig.PassPhrase))
	case MYSQL_DB:
		if dbConfig.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for %v databases", store.dialect)
		}
		dialector = mysql.Open(dbConfig.DSN)
	case POSTGRES_DB:
		if dbConfig.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for %v databases", store.dialect)
		}
		dialector = postgres.Open(dbConfig.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %v", dbConfig.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}
	store.db = db

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	// sqlite serializes writers itself, so share a single connection
	if store.dialect == SQLITE_DB {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	return store, nil
}

// AutoMigrate auto-migrates the db schema
func (s *Store) AutoMigrate() error {
	err := s.db.AutoMigrate(
		&User{}, &FamilyMember{}, &Location{},
		&SafeZone{}, &Alert{}, &Insight{}, &Job{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}

	logg.Infof("%v schema migrated", s.dialect)
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *Store) Dialect() string {
	return s.dialect
}

// SqliteDbPath returns the path of the sqlite db file, empty for other dialects
func (s *Store) SqliteDbPath() string {
	return s.sqliteDbPath
}

// Checkpoint flushes the sqlite WAL into the main db file, so the file can be copied safely
func (s *Store) Checkpoint(ctx context.Context) error {
	if s.dialect != SQLITE_DB {
		return nil
	}

	return s.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error
}

func (s *Store) withContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func sqliteDSN(dbFilePath, passPhrase string) string {
	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1",
		dbFilePath,
		passPhrase,
	)
}

// SqliteDbPath returns the path of the sqlite db file under dbRootDir,
// creating the 'db' folder if it doesn't exist.
func SqliteDbPath(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}
