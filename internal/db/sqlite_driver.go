package db

import (
	"database/sql"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver name.
	// Registered separately so tests and production share one driver
	// without colliding with other sqlite3 registrations.
	SQLiteDriverName = "sqlite3_note_service"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{})
}
