package postgres

import (
	"EventRelay/internal/shared/config"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testDB *DB

// TestMain connects to TEST_DATABASE_URL when it is set. Without it the
// database tests skip themselves.
func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		os.Exit(m.Run())
	}

	nopLogger := zerolog.Nop()
	var err error
	testDB, err = NewDB(context.Background(), config.PostgresConfig{URL: url, MaxConns: 2, ConnectTimeout: 5 * time.Second}, &nopLogger)
	if err != nil {
		log.Fatalf("TestMain: Failed to connect to test database: %v", err)
	}
	if err := testDB.Migrate(context.Background()); err != nil {
		log.Fatalf("TestMain: Failed to migrate: %v", err)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) *DB {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return testDB
}
