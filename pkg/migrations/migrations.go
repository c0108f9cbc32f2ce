package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// Database is the storage section of a service config, a remote libsql Url
// takes precedence over a local File.
type Database struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Database) Open() (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, wrapOpenDB(fmt.Errorf("neither a file nor a url was specified"))
		}
		return OpenDB(config.File)
	}

	dbUrl, err := url.Parse(config.Url)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	switch dbUrl.Scheme {
	case "libsql", "http", "https", "ws", "wss":
	default:
		return nil, wrapOpenDB(fmt.Errorf("unsupported database url scheme '%s'", dbUrl.Scheme))
	}
	if config.AuthToken != "" {
		values := dbUrl.Query()
		values.Set("authToken", config.AuthToken)
		dbUrl.RawQuery = values.Encode()
	}

	db, err := sql.Open("libsql", dbUrl.String())
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

// OpenDB opens a local sqlite database, creating its parent directory when needed.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	return db, nil
}

func wrapOpenAndMigrate(err error) error {
	return fmt.Errorf("open and migrate db: %w", err)
}

// Migrate applies `schema`, which must only contain idempotent statements
// (create ... if not exists).
func Migrate(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func OpenAndMigrateDB(ctx context.Context, schema string, config Database) (*sql.DB, error) {
	db, err := config.Open()
	if err != nil {
		return nil, wrapOpenAndMigrate(err)
	}
	err = Migrate(ctx, db, schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenAndMigrate(err)
	}
	return db, nil
}
