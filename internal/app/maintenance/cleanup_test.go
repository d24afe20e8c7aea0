package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/database"
	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "maintenance_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	for _, id := range []string{"user-1", "user-stale", "user-enabled", "user-fresh"} {
		require.NoError(t, db.Create(&models.User{ID: id, Email: id + "@example.com", Name: id}).Error)
	}
	return db
}

func TestCleanupPendingCredentials(t *testing.T) {
	db := newTestDB(t)

	stale := models.TwoFactorCredential{UserID: "user-stale", Secret: "x", Enabled: false}
	require.NoError(t, db.Create(&stale).Error)
	enabled := models.TwoFactorCredential{UserID: "user-enabled", Secret: "x", Enabled: true}
	require.NoError(t, db.Create(&enabled).Error)
	fresh := models.TwoFactorCredential{UserID: "user-fresh", Secret: "x", Enabled: false}
	require.NoError(t, db.Create(&fresh).Error)

	past := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.TwoFactorCredential{}).
		Where("user_id IN ?", []string{"user-stale", "user-enabled"}).
		Update("updated_at", past).Error)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	purged, err := CleanupPendingCredentials(context.Background(), db, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining []models.TwoFactorCredential
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, credential := range remaining {
		require.NotEqual(t, "user-stale", credential.UserID)
	}
}

func TestCleanerRunOnce(t *testing.T) {
	db := newTestDB(t)

	categories, err := services.NewCategoryService(db)
	require.NoError(t, err)
	category, err := categories.Create(context.Background(), services.CreateCategoryInput{Name: "Acessórios"})
	require.NoError(t, err)

	products, err := services.NewProductService(db)
	require.NoError(t, err)
	product, err := products.Create(context.Background(), services.CreateProductInput{
		Name:       "Cabo USB",
		PriceCents: 1500,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	require.NoError(t, products.Delete(context.Background(), product.ID))

	past := time.Now().Add(-60 * 24 * time.Hour).UTC()
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("deactivated_at", past).Error)

	credential := models.TwoFactorCredential{UserID: "user-1", Secret: "x", Enabled: false}
	require.NoError(t, db.Create(&credential).Error)
	require.NoError(t, db.Model(&credential).Update("updated_at", past).Error)

	cleaner := NewCleaner(db, products, WithRetentionDays(30))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	_, err = products.GetByID(context.Background(), product.ID, true)
	require.ErrorIs(t, err, services.ErrProductNotFound)

	var count int64
	require.NoError(t, db.Model(&models.TwoFactorCredential{}).Count(&count).Error)
	require.Zero(t, count)
}
