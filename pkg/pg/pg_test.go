package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type note struct {
	ID   int64 `gorm:"primaryKey"`
	Body string
}

func newTestPair(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&note{}))
	return NewFromGorm(db, db)
}

func TestDB_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		pair := newTestPair(t)
		assert.NoError(t, pair.Ping(context.Background()))
	})

	t.Run("closed connection", func(t *testing.T) {
		pair := newTestPair(t)
		sqlDB, err := pair.read.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		assert.Error(t, pair.Ping(context.Background()))
	})
}

func TestDB_WithinTransaction(t *testing.T) {
	t.Run("rolls back on error", func(t *testing.T) {
		pair := newTestPair(t)
		ctx := context.Background()

		err := pair.WithinTransaction(ctx, func(txCtx context.Context) error {
			require.NoError(t, pair.Write(txCtx).Create(&note{Body: "draft"}).Error)

			// Reads inside the callback are routed through the same tx.
			var n int64
			require.NoError(t, pair.Read(txCtx).Model(&note{}).Count(&n).Error)
			require.EqualValues(t, 1, n)

			return errors.New("abort")
		})
		require.Error(t, err)

		var n int64
		require.NoError(t, pair.Read(ctx).Model(&note{}).Count(&n).Error)
		assert.EqualValues(t, 0, n)
	})

	t.Run("commits on success", func(t *testing.T) {
		pair := newTestPair(t)
		ctx := context.Background()

		require.NoError(t, pair.WithinTransaction(ctx, func(txCtx context.Context) error {
			return pair.Write(txCtx).Create(&note{Body: "kept"}).Error
		}))

		var n int64
		require.NoError(t, pair.Read(ctx).Model(&note{}).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})
}
