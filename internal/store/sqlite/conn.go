package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// memSeq names each in-memory database uniquely so separate Open calls get
// separate databases, while cache=shared keeps the pool's connections on one.
var memSeq atomic.Int64

// Open opens (or creates) a SQLite database at the given path, enables WAL
// journal mode and foreign keys. Pass ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_pragma=foreign_keys(ON)", memSeq.Add(1))
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
