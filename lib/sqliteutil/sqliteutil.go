package sqliteutil

import (
	devenv "coursewatch-backend/dev/env"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database.
type Config struct {
	// File is a path to a sqlite database, it may start with <dev_state>.
	// ":memory:" opens a private in-memory database.
	File string `json:"file"`
	// Url is a libsql:// (or https://) database url, it takes priority over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) String() string {
	if c.Url != "" {
		return c.Url
	}
	return c.File
}

// OpenDB opens the configured database and applies `schema` to it.
// The schema must be idempotent (CREATE ... IF NOT EXISTS).
func OpenDB(schema string, config Config) (*sql.DB, error) {
	var db *sql.DB
	var err error
	switch {
	case config.Url != "":
		db, err = openLibsql(config)
	case config.File != "":
		db, err = openFile(config.File)
	default:
		return nil, fmt.Errorf("a database file or url was not specified")
	}
	if err != nil {
		return nil, err
	}

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

func openLibsql(config Config) (*sql.DB, error) {
	link, err := url.Parse(config.Url)
	if err != nil {
		return nil, err
	}
	if config.AuthToken != "" {
		query := link.Query()
		query.Set("authToken", config.AuthToken)
		link.RawQuery = query.Encode()
	}
	return sql.Open("libsql", link.String())
}

func openFile(file string) (*sql.DB, error) {
	if file == ":memory:" {
		db, err := sql.Open("sqlite", file)
		if err != nil {
			return nil, err
		}
		// every connection to :memory: is a different database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dbpath, err := devenv.ResolvePath(file)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbpath); dir != "." && !strings.HasPrefix(dir, ":") {
		err = os.MkdirAll(dir, 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
