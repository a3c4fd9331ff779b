package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupProviderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.VariantModel{},
		&models.LocationModel{},
		&models.TaxRateModel{},
		&models.StoreTaxSettingModel{},
		&models.FulfillmentLineModel{},
	))
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, storeID uuid.UUID, title string, price decimal.Decimal) models.VariantModel {
	t.Helper()

	row := models.VariantModel{
		ID:               uuid.New(),
		StoreID:          storeID,
		ProductID:        uuid.New(),
		Title:            title,
		SKU:              "SKU-" + title,
		Price:            price,
		Taxable:          true,
		RequiresShipping: true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func seedLocation(t *testing.T, db *gorm.DB, storeID uuid.UUID, name string, isDefault bool) models.LocationModel {
	t.Helper()

	row := models.LocationModel{
		ID:        uuid.New(),
		StoreID:   storeID,
		Name:      name,
		IsDefault: isDefault,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func seedTaxRate(t *testing.T, db *gorm.DB, storeID, productID uuid.UUID, country, title string, rate string) {
	t.Helper()

	row := models.TaxRateModel{
		ID:          uuid.New(),
		StoreID:     storeID,
		CountryCode: country,
		ProductID:   productID,
		Title:       title,
		Rate:        decimal.RequireFromString(rate),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestGormCatalogProvider_VariantsByIDs(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormCatalogProvider(db)
	ctx := context.Background()
	storeID := uuid.New()

	cup := seedVariant(t, db, storeID, "Cup", decimal.NewFromInt(10))
	saucer := seedVariant(t, db, storeID, "Saucer", decimal.NewFromInt(6))
	foreign := seedVariant(t, db, uuid.New(), "Other Store", decimal.NewFromInt(1))

	missing := uuid.New()
	variants, err := provider.VariantsByIDs(ctx, storeID, []uuid.UUID{cup.ID, saucer.ID, foreign.ID, missing})
	require.NoError(t, err)

	assert.Len(t, variants, 2)
	assert.Equal(t, "Cup", variants[cup.ID].Title)
	assert.True(t, variants[saucer.ID].Price.Equal(decimal.NewFromInt(6)))
	_, ok := variants[foreign.ID]
	assert.False(t, ok)
	_, ok = variants[missing]
	assert.False(t, ok)
}

func TestGormCatalogProvider_VariantsByIDs_Empty(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormCatalogProvider(db)

	variants, err := provider.VariantsByIDs(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, variants)
}

func TestGormLocationProvider_LocationsByIDs(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormLocationProvider(db)
	ctx := context.Background()
	storeID := uuid.New()

	warehouse := seedLocation(t, db, storeID, "Warehouse", true)
	shop := seedLocation(t, db, storeID, "Shop", false)

	locations, err := provider.LocationsByIDs(ctx, storeID, []uuid.UUID{warehouse.ID, shop.ID, uuid.New()})
	require.NoError(t, err)

	assert.Len(t, locations, 2)
	assert.True(t, locations[warehouse.ID].Default)
	assert.Equal(t, "Shop", locations[shop.ID].Name)
}

func TestGormLocationProvider_DefaultLocation(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormLocationProvider(db)
	ctx := context.Background()

	t.Run("single default", func(t *testing.T) {
		storeID := uuid.New()
		seedLocation(t, db, storeID, "Shop", false)
		warehouse := seedLocation(t, db, storeID, "Warehouse", true)

		location, err := provider.DefaultLocation(ctx, storeID)
		require.NoError(t, err)
		assert.Equal(t, warehouse.ID, location.ID)
	})

	t.Run("no default", func(t *testing.T) {
		storeID := uuid.New()
		seedLocation(t, db, storeID, "Shop", false)

		_, err := provider.DefaultLocation(ctx, storeID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LOCATION_NOT_FOUND", domainErr.Code)
	})

	t.Run("two defaults", func(t *testing.T) {
		storeID := uuid.New()
		seedLocation(t, db, storeID, "A", true)
		seedLocation(t, db, storeID, "B", true)

		_, err := provider.DefaultLocation(ctx, storeID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LOCATION_NOT_FOUND", domainErr.Code)
	})
}

func TestGormTaxSettingsProvider_ResolveTaxes(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormTaxSettingsProvider(db)
	ctx := context.Background()
	storeID := uuid.New()

	require.NoError(t, db.Create(&models.StoreTaxSettingModel{
		ID:          uuid.New(),
		StoreID:     storeID,
		TaxIncluded: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}).Error)

	seedTaxRate(t, db, storeID, uuid.Nil, "DE", "VAT", "0.19")
	special := uuid.New()
	seedTaxRate(t, db, storeID, special, "DE", "Reduced VAT", "0.07")
	plain := uuid.New()

	resolution, err := provider.ResolveTaxes(ctx, storeID, "DE", []uuid.UUID{special, plain}, true)
	require.NoError(t, err)

	assert.True(t, resolution.TaxIncluded)

	require.Len(t, resolution.Rates[uuid.Nil], 1)
	assert.True(t, resolution.Rates[uuid.Nil][0].Rate.Equal(decimal.RequireFromString("0.19")))

	require.Len(t, resolution.Rates[special], 1)
	assert.Equal(t, "Reduced VAT", resolution.Rates[special][0].Title)

	require.Len(t, resolution.Rates[plain], 1)
	assert.Equal(t, "VAT", resolution.Rates[plain][0].Title)
}

func TestGormTaxSettingsProvider_ResolveTaxes_NoSettings(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormTaxSettingsProvider(db)

	resolution, err := provider.ResolveTaxes(context.Background(), uuid.New(), "US", nil, false)
	require.NoError(t, err)

	assert.False(t, resolution.TaxIncluded)
	assert.Empty(t, resolution.Rates[uuid.Nil])
}

func TestGormFulfillmentProvider_RestockCountersFor(t *testing.T) {
	db := setupProviderTestDB(t)
	provider := NewGormFulfillmentProvider(db)
	ctx := context.Background()
	storeID := uuid.New()
	orderID := uuid.New()
	lineItemID := uuid.New()
	locationID := uuid.New()

	require.NoError(t, db.Create(&models.FulfillmentLineModel{
		ID:         uuid.New(),
		StoreID:    storeID,
		OrderID:    orderID,
		LineItemID: lineItemID,
		LocationID: locationID,
		Cancelable: 2,
		Returnable: 1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}).Error)

	counters, err := provider.RestockCountersFor(ctx, storeID, orderID)
	require.NoError(t, err)

	require.Contains(t, counters, lineItemID)
	assert.Equal(t, 2, counters[lineItemID].Cancelable)
	assert.Equal(t, 1, counters[lineItemID].Returnable)
	assert.Equal(t, locationID, counters[lineItemID].FulfillmentLocationID)

	empty, err := provider.RestockCountersFor(ctx, storeID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
