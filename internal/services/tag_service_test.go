package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagServiceCreateAndList(t *testing.T) {
	db := newTestDB(t)
	category, _ := seedCategoryWithTag(t, db)

	svc, err := NewTagService(db)
	require.NoError(t, err)

	tag, err := svc.Create(context.Background(), category.ID, "Vidro Temperado")
	require.NoError(t, err)
	require.Equal(t, "vidro-temperado", tag.Slug)

	_, err = svc.Create(context.Background(), category.ID, "   ")
	require.Error(t, err)

	_, err = svc.Create(context.Background(), "missing-category", "Apple")
	require.ErrorIs(t, err, ErrCategoryNotFound)

	tags, err := svc.ListByCategory(context.Background(), category.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	// Sorted by name.
	require.Equal(t, "Apple", tags[0].Name)
	require.Equal(t, "Vidro Temperado", tags[1].Name)
}

func TestTagServiceDeleteDetachesProducts(t *testing.T) {
	db := newTestDB(t)
	category, tag := seedCategoryWithTag(t, db)

	products, err := NewProductService(db)
	require.NoError(t, err)
	product, err := products.Create(context.Background(), CreateProductInput{
		Name:       "Película iPhone",
		PriceCents: 2990,
		CategoryID: category.ID,
		TagID:      &tag.ID,
	})
	require.NoError(t, err)

	svc, err := NewTagService(db)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), tag.ID))

	require.ErrorIs(t, svc.Delete(context.Background(), tag.ID), ErrTagNotFound)

	reloaded, err := products.GetByID(context.Background(), product.ID, false)
	require.NoError(t, err)
	require.Nil(t, reloaded.TagID)
}
