package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

// setupTestDB opens an in-memory sqlite database with the repository
// schema applied. A single connection keeps every query on the same
// in-memory instance.
func setupTestDB(t *testing.T) *testDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&GatewayEntity{}, &TemplateEntity{}, &GatewayLogEntity{}))

	return &testDB{DB: pg.NewFromGorm(db, db), rawDB: db}
}
