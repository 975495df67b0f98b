package memory

import (
	"context"
	"testing"

	domain "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog() *ProductRepository {
	repo := NewProductRepository()
	repo.Seed(
		domain.Product{ID: "p-1", Title: "Mug", Price: 9.99, Inventory: 10},
		domain.Product{ID: "p-2", Title: "Grinder", Price: 64.99, Inventory: 1},
	)
	return repo
}

func TestFindByIDsReturnsOnlyKnownProducts(t *testing.T) {
	repo := seedCatalog()

	found, err := repo.FindByIDs(context.Background(), []string{"p-1", "missing", "p-2"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(999), found["p-1"].PriceMinorUnits())
	assert.Equal(t, int64(6499), found["p-2"].PriceMinorUnits())
}

func TestFindByIDsReturnsClones(t *testing.T) {
	repo := seedCatalog()
	ctx := context.Background()

	found, err := repo.FindByIDs(ctx, []string{"p-1"})
	require.NoError(t, err)
	found["p-1"].Price = 0.01

	again, err := repo.FindByIDs(ctx, []string{"p-1"})
	require.NoError(t, err)
	assert.Equal(t, 9.99, again["p-1"].Price)
}

func TestDecrement(t *testing.T) {
	repo := seedCatalog()
	ctx := context.Background()

	require.NoError(t, repo.Decrement(ctx, "p-1", 3))
	found, err := repo.FindByIDs(ctx, []string{"p-1"})
	require.NoError(t, err)
	assert.Equal(t, 7, found["p-1"].Inventory)
}

func TestDecrementClampsAtZero(t *testing.T) {
	repo := seedCatalog()
	ctx := context.Background()

	// one unit left, five sold: oversell shows as zero, never negative
	require.NoError(t, repo.Decrement(ctx, "p-2", 5))
	found, err := repo.FindByIDs(ctx, []string{"p-2"})
	require.NoError(t, err)
	assert.Equal(t, 0, found["p-2"].Inventory)
}

func TestDecrementToleratesMissingProduct(t *testing.T) {
	repo := seedCatalog()
	assert.NoError(t, repo.Decrement(context.Background(), "missing", 1))
}

func TestDecrementIgnoresNonPositiveQuantity(t *testing.T) {
	repo := seedCatalog()
	ctx := context.Background()

	require.NoError(t, repo.Decrement(ctx, "p-1", 0))
	require.NoError(t, repo.Decrement(ctx, "p-1", -2))

	found, err := repo.FindByIDs(ctx, []string{"p-1"})
	require.NoError(t, err)
	assert.Equal(t, 10, found["p-1"].Inventory)
}
