package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is the slice of a catalog variant the order core needs
type Variant struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	Title            string
	SKU              string
	Price            decimal.Decimal
	Taxable          bool
	RequiresShipping bool
}

// CatalogProvider resolves variants in batch. Ids that do not resolve must
// be reported, never silently dropped.
type CatalogProvider interface {
	VariantsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Variant, error)
}

// Location is a stock location refunds can restock into
type Location struct {
	ID      uuid.UUID
	Name    string
	Default bool
}

// LocationProvider resolves locations in batch and the store default.
// DefaultLocation fails unless exactly one default exists.
type LocationProvider interface {
	LocationsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Location, error)
	DefaultLocation(ctx context.Context, storeID uuid.UUID) (Location, error)
}

// ProductTaxRate is one applicable tax rate for a product
type ProductTaxRate struct {
	ProductID uuid.UUID
	Title     string
	Rate      decimal.Decimal
}

// TaxResolution is the tax settings answer for one request
type TaxResolution struct {
	Rates       map[uuid.UUID][]ProductTaxRate
	TaxIncluded bool
}

// TaxSettingsProvider resolves applicable tax rates for a product set in a
// country, plus whether the store prices tax-inclusively. Rates for
// productless (custom) items are keyed under uuid.Nil.
type TaxSettingsProvider interface {
	ResolveTaxes(ctx context.Context, storeID uuid.UUID, countryCode string, productIDs []uuid.UUID, includeShipping bool) (TaxResolution, error)
}

// FulfillmentProvider reports per-line-item restock counters derived from
// fulfillment order state: how many units are still cancelable, how many
// can come back, and where fulfilled stock lives.
type FulfillmentProvider interface {
	RestockCountersFor(ctx context.Context, storeID, orderID uuid.UUID) (map[uuid.UUID]RestockCounters, error)
}

// IDReserver hands out fixed-size ordered id batches so collection builders
// can consume pre-reserved ids by index.
type IDReserver interface {
	Reserve(ctx context.Context, n int) ([]uuid.UUID, error)
}
