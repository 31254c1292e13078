//go:build integration

// Package integration runs the engine end to end against PostgreSQL started
// with testcontainers. Run with: go test -tags integration ./tests/integration/...
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agrocredit/backend/internal/infrastructure/config"
	"github.com/agrocredit/backend/internal/infrastructure/logger"
	"github.com/agrocredit/backend/internal/infrastructure/migration"
	"github.com/agrocredit/backend/internal/infrastructure/persistence"
)

const (
	pgImage    = "postgres:16-alpine"
	pgDatabase = "agrocredit_test"
	pgUser     = "postgres"
	pgPassword = "postgres"
)

// TestDB is a migrated PostgreSQL database in its own container, opened
// through the same connection code the server uses
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB starts a container, applies the embedded migrations and
// registers cleanup for both the connection and the container.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, pgImage,
		tcpostgres.WithDatabase(pgDatabase),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	conn, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		DBName:          pgDatabase,
		SSLMode:         "disable",
		MaxOpenConns:    10, // the concurrency tests need real contention
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}, gormLogger())
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = conn.Close() })

	sqlDB, err := conn.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	return &TestDB{DB: conn.DB, t: t}
}

// gormLogger is silent unless TEST_DB_DEBUG is set
func gormLogger() gormlogger.Interface {
	if os.Getenv("TEST_DB_DEBUG") == "" {
		return nil
	}
	dev, err := logger.NewForEnvironment("development")
	if err != nil {
		return nil
	}
	return logger.NewGormLogger(dev, gormlogger.Info)
}

// Count returns the number of rows in table
func (tdb *TestDB) Count(table string) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Count(&n).Error)
	return n
}
