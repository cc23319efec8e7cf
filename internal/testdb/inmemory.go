// Package testdb provides in-memory encrypted stores for unit tests.
package testdb

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/impetus-notes/note-service/internal/db"
)

// hardcodedKey is a fixed 32-byte key for in-memory test databases.
var hardcodedKey = []byte("0123456789abcdef0123456789abcdef")

// NewStoreInMemory creates an in-memory encrypted Store for tests.
// Each distinct name gets its own shared-cache database, so tests that
// want isolation should pass unique names.
func NewStoreInMemory(name string) (*db.Store, error) {
	if name == "" {
		name = "test-store"
	}

	keyHex := hex.EncodeToString(hardcodedKey)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, keyHex)

	sqlDB, err := sql.Open(db.SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store: %w", err)
	}

	// Shared-cache connections take table-level locks and fail with
	// SQLITE_LOCKED instead of waiting, so concurrent tests must go
	// through a single pooled connection.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify in-memory store: %w", err)
	}

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(db.Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize in-memory schema: %w", err)
	}

	return db.NewFromSQL(sqlDB), nil
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA secure_delete=OFF",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
