package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "catalog_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	return db
}
