package testutil

import (
	"coursewatch-backend/lib/sqliteutil"
	"coursewatch-backend/lib/telemetry"
	"database/sql"
	"testing"
)

type ServiceParams struct {
	// if unspecified, it will skip applying a schema
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService prepares logging and a fresh database for a test, the
// database is closed when the test finishes.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	telemetry.SetupForTesting(t)

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	db, err := sqliteutil.OpenDB(params.DbSchema, sqliteutil.Config{File: dbpath})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return ServiceResult{DB: db}
}
