package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rautatech/catalog/internal/database"
	"github.com/rautatech/catalog/internal/models"
)

func TestSlugify(t *testing.T) {
	require.Equal(t, "capinhas", Slugify("Capinhas"))
	require.Equal(t, "pel-culas-protetoras", Slugify("  Películas Protetoras  "))
	require.Equal(t, "usb-c-30w", Slugify("USB-C 30W!"))
	require.Equal(t, "", Slugify("   "))
}

func TestCategoryServiceCreateAndTree(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	parent, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Manutenção", Slug: "manutencao"})
	require.NoError(t, err)

	child, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Celular", ParentID: &parent.ID})
	require.NoError(t, err)
	require.Equal(t, "celular", child.Slug)

	tags, err := NewTagService(db)
	require.NoError(t, err)
	_, err = tags.Create(context.Background(), child.ID, "Android")
	require.NoError(t, err)

	roots, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Subcategories, 1)
	require.Len(t, roots[0].Subcategories[0].Tags, 1)

	bySlug, err := svc.GetBySlug(context.Background(), "manutencao")
	require.NoError(t, err)
	require.Equal(t, parent.ID, bySlug.ID)
}

func TestCategoryServiceCreateDuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "Capinhas"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "Capinhas"})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestCategoryServiceCreateMissingParent(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	missing := "does-not-exist"
	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "Orphan", ParentID: &missing})
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryServiceDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	parent, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Manutenção"})
	require.NoError(t, err)
	child, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Notebook", ParentID: &parent.ID})
	require.NoError(t, err)

	tags, err := NewTagService(db)
	require.NoError(t, err)
	_, err = tags.Create(context.Background(), child.ID, "Formatação")
	require.NoError(t, err)

	require.NoError(t, svc.SetMessage(context.Background(), child.ID, "Olá!"))

	products, err := NewProductService(db)
	require.NoError(t, err)
	product, err := products.Create(context.Background(), CreateProductInput{
		Name:       "Formatação completa",
		PriceCents: 15000,
		CategoryID: child.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), parent.ID))

	_, err = svc.GetByID(context.Background(), parent.ID)
	require.ErrorIs(t, err, ErrCategoryNotFound)
	_, err = svc.GetByID(context.Background(), child.ID)
	require.ErrorIs(t, err, ErrCategoryNotFound)

	var tagCount int64
	require.NoError(t, db.Model(&models.ProductTag{}).Count(&tagCount).Error)
	require.Zero(t, tagCount)

	var msgCount int64
	require.NoError(t, db.Model(&models.CategoryMessage{}).Count(&msgCount).Error)
	require.Zero(t, msgCount)

	// Products survive but are deactivated.
	reloaded, err := products.GetByID(context.Background(), product.ID, true)
	require.NoError(t, err)
	require.False(t, reloaded.IsActive)
}

func TestCategoryServiceMessageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	category, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Carregadores"})
	require.NoError(t, err)

	message, err := svc.Message(context.Background(), category.ID)
	require.NoError(t, err)
	require.Empty(t, message)

	require.NoError(t, svc.SetMessage(context.Background(), category.ID, "Quero saber sobre carregadores"))
	message, err = svc.Message(context.Background(), category.ID)
	require.NoError(t, err)
	require.Equal(t, "Quero saber sobre carregadores", message)

	require.NoError(t, svc.SetMessage(context.Background(), category.ID, "Atualizado"))
	message, err = svc.Message(context.Background(), category.ID)
	require.NoError(t, err)
	require.Equal(t, "Atualizado", message)

	require.NoError(t, svc.SetMessage(context.Background(), category.ID, ""))
	message, err = svc.Message(context.Background(), category.ID)
	require.NoError(t, err)
	require.Empty(t, message)
}

func TestSeededCatalogIsListable(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, database.SeedData(db, database.SeedConfig{}))

	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	roots, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 5)

	var maintenance *models.Category
	for i := range roots {
		if roots[i].Slug == "manutencao" {
			maintenance = &roots[i]
		}
	}
	require.NotNil(t, maintenance)
	require.Len(t, maintenance.Subcategories, 3)
}
