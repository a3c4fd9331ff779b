package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogProvider implements order.CatalogProvider against the
// product_variants table.
type GormCatalogProvider struct {
	db *gorm.DB
}

// NewGormCatalogProvider creates a new GormCatalogProvider
func NewGormCatalogProvider(db *gorm.DB) *GormCatalogProvider {
	return &GormCatalogProvider{db: db}
}

// VariantsByIDs resolves variants in batch for a store. Callers detect
// unresolved ids by their absence from the returned map.
func (p *GormCatalogProvider) VariantsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]order.Variant, error) {
	result := make(map[uuid.UUID]order.Variant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.VariantModel
	if err := p.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].ToDomain()
	}
	return result, nil
}

// GormLocationProvider implements order.LocationProvider against the
// locations table.
type GormLocationProvider struct {
	db *gorm.DB
}

// NewGormLocationProvider creates a new GormLocationProvider
func NewGormLocationProvider(db *gorm.DB) *GormLocationProvider {
	return &GormLocationProvider{db: db}
}

// LocationsByIDs resolves locations in batch for a store
func (p *GormLocationProvider) LocationsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]order.Location, error) {
	result := make(map[uuid.UUID]order.Location, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.LocationModel
	if err := p.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].ToDomain()
	}
	return result, nil
}

// DefaultLocation returns the store's default location. It fails unless
// exactly one default exists.
func (p *GormLocationProvider) DefaultLocation(ctx context.Context, storeID uuid.UUID) (order.Location, error) {
	var rows []models.LocationModel
	if err := p.db.WithContext(ctx).
		Where("store_id = ? AND is_default = ?", storeID, true).
		Limit(2).
		Find(&rows).Error; err != nil {
		return order.Location{}, err
	}
	if len(rows) != 1 {
		return order.Location{}, shared.NewDomainError("LOCATION_NOT_FOUND", "Store has no single default location")
	}
	return rows[0].ToDomain(), nil
}

// GormTaxSettingsProvider implements order.TaxSettingsProvider against the
// tax_rates and store_tax_settings tables. A rate row with a nil product id
// is the store-wide default for its country; product-specific rows override
// it per product.
type GormTaxSettingsProvider struct {
	db *gorm.DB
}

// NewGormTaxSettingsProvider creates a new GormTaxSettingsProvider
func NewGormTaxSettingsProvider(db *gorm.DB) *GormTaxSettingsProvider {
	return &GormTaxSettingsProvider{db: db}
}

// ResolveTaxes resolves applicable tax rates for a product set in a
// country. Default rates are keyed under uuid.Nil so productless custom
// items and shipping resolve too.
func (p *GormTaxSettingsProvider) ResolveTaxes(ctx context.Context, storeID uuid.UUID, countryCode string, productIDs []uuid.UUID, includeShipping bool) (order.TaxResolution, error) {
	resolution := order.TaxResolution{Rates: make(map[uuid.UUID][]order.ProductTaxRate)}

	var setting models.StoreTaxSettingModel
	err := p.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&setting).Error
	if err == nil {
		resolution.TaxIncluded = setting.TaxIncluded
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return order.TaxResolution{}, err
	}

	var defaults []models.TaxRateModel
	if err := p.db.WithContext(ctx).
		Where("store_id = ? AND country_code = ? AND product_id = ?", storeID, countryCode, uuid.Nil).
		Order("created_at ASC").
		Find(&defaults).Error; err != nil {
		return order.TaxResolution{}, err
	}
	defaultRates := make([]order.ProductTaxRate, len(defaults))
	for i := range defaults {
		defaultRates[i] = defaults[i].ToDomain()
	}
	resolution.Rates[uuid.Nil] = defaultRates

	var lookup []uuid.UUID
	for _, id := range productIDs {
		if id != uuid.Nil {
			lookup = append(lookup, id)
		}
	}
	if len(lookup) > 0 {
		var rows []models.TaxRateModel
		if err := p.db.WithContext(ctx).
			Where("store_id = ? AND country_code = ? AND product_id IN ?", storeID, countryCode, lookup).
			Order("created_at ASC").
			Find(&rows).Error; err != nil {
			return order.TaxResolution{}, err
		}
		for i := range rows {
			rate := rows[i].ToDomain()
			resolution.Rates[rate.ProductID] = append(resolution.Rates[rate.ProductID], rate)
		}
	}

	// Products without their own rows fall back to the store defaults
	for _, id := range lookup {
		if _, ok := resolution.Rates[id]; !ok {
			resolution.Rates[id] = defaultRates
		}
	}
	return resolution, nil
}

// GormFulfillmentProvider implements order.FulfillmentProvider against the
// fulfillment_lines table.
type GormFulfillmentProvider struct {
	db *gorm.DB
}

// NewGormFulfillmentProvider creates a new GormFulfillmentProvider
func NewGormFulfillmentProvider(db *gorm.DB) *GormFulfillmentProvider {
	return &GormFulfillmentProvider{db: db}
}

// RestockCountersFor reports per-line-item restock counters for an order
func (p *GormFulfillmentProvider) RestockCountersFor(ctx context.Context, storeID, orderID uuid.UUID) (map[uuid.UUID]order.RestockCounters, error) {
	var rows []models.FulfillmentLineModel
	if err := p.db.WithContext(ctx).
		Where("store_id = ? AND order_id = ?", storeID, orderID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]order.RestockCounters, len(rows))
	for i := range rows {
		result[rows[i].LineItemID] = rows[i].ToDomain()
	}
	return result, nil
}

var (
	_ order.CatalogProvider     = (*GormCatalogProvider)(nil)
	_ order.LocationProvider    = (*GormLocationProvider)(nil)
	_ order.TaxSettingsProvider = (*GormTaxSettingsProvider)(nil)
	_ order.FulfillmentProvider = (*GormFulfillmentProvider)(nil)
)
