// Package dbtest opens a migrated PostgreSQL database for integration tests.
// Tests using it are skipped unless WARDEN_TEST_DATABASE_URL is set.
//
// Package test binaries run in parallel against the same database, so tests
// must not truncate tables and should key their assertions on fresh UUIDs.
package dbtest

import (
	"database/sql"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/warden/migrations"
)

// EnvURL names the variable holding the postgres:// test database URL.
const EnvURL = "WARDEN_TEST_DATABASE_URL"

var migrate = sync.OnceValue(func() error {
	return migrations.Up(os.Getenv(EnvURL))
})

// Open returns a connection to the test database, applying migrations once per process.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set", EnvURL)
	}

	if err := migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("ping test database: %v", err)
	}
	return db
}
