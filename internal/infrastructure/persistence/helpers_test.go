package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// newTestDB opens a migrated in-memory sqlite database on a single connection
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newApprovedInspection(t *testing.T, parcelID uuid.UUID, value string) *inspection.Inspection {
	t.Helper()
	i, err := inspection.NewInspection(parcelID, uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, i.Schedule(time.Now(), nil))
	require.NoError(t, i.Approve("ok", dec(value), inspection.FormData{}, nil))
	return i
}

func newFinancing(t *testing.T, subjectID uuid.UUID, principal string) *financing.Financing {
	t.Helper()
	f, err := financing.NewFinancing(financing.Terms{
		SubjectID:             subjectID,
		ParcelID:              uuid.New(),
		Principal:             dec(principal),
		Rate:                  dec("0.12"),
		NumberOfHarvestCycles: 1,
		Purpose:               "seed and fertilizer",
	}, nil)
	require.NoError(t, err)
	return f
}
