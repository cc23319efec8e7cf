// Package db owns the encrypted SQLite store: connection lifecycle,
// schema, and unique-constraint detection. The *Store handle is injected
// into the domain stores; there is no package-level singleton.
package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DBName is the filename of the note store database.
	DBName = "notes.db"

	// MaxOpenConns keeps the pool small. SQLite is single-writer, so high
	// connection counts are counterproductive.
	MaxOpenConns = 4

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// Store wraps the sql.DB connection for the note store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the encrypted note store database under
// dataDir. The key must be 32 bytes; it becomes the SQLCipher pragma key.
func Open(dataDir string, key []byte) (*Store, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("database key must be 32 bytes, got %d", len(key))
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open note store database: %w", err)
	}

	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// Verify the connection and the encryption key. A wrong key fails here.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify note store database: %w", err)
	}

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// NewFromSQL wraps an existing sql.DB as a Store. Used by testdb.
func NewFromSQL(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// DB returns the underlying sql.DB for the domain stores.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func sqliteCommonParams() string {
	// WAL + NORMAL gives good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
