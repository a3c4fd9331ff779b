package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// VariantModel is the persistence model behind the catalog provider. It
// holds the slice of a product variant the order core reads.
type VariantModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title            string          `gorm:"type:varchar(255);not null"`
	SKU              string          `gorm:"type:varchar(100);index"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Taxable          bool            `gorm:"not null;default:true"`
	RequiresShipping bool            `gorm:"not null;default:true"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *VariantModel) ToDomain() order.Variant {
	return order.Variant{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Title:            m.Title,
		SKU:              m.SKU,
		Price:            m.Price,
		Taxable:          m.Taxable,
		RequiresShipping: m.RequiresShipping,
	}
}

// LocationModel is the persistence model behind the location provider.
type LocationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index:idx_location_store_default,priority:1"`
	Name      string    `gorm:"type:varchar(255);not null"`
	IsDefault bool      `gorm:"not null;default:false;index:idx_location_store_default,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string {
	return "locations"
}

// ToDomain converts the persistence model to a domain Location
func (m *LocationModel) ToDomain() order.Location {
	return order.Location{
		ID:      m.ID,
		Name:    m.Name,
		Default: m.IsDefault,
	}
}

// TaxRateModel is one tax rate row behind the tax settings provider. A row
// with a nil ProductID is the store-wide default rate for the country;
// product-specific rows override it.
type TaxRateModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_tax_rate_store_country,priority:1"`
	CountryCode string          `gorm:"type:varchar(2);not null;index:idx_tax_rate_store_country,priority:2"`
	ProductID   uuid.UUID       `gorm:"type:uuid;index"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(10,6);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string {
	return "tax_rates"
}

// ToDomain converts the persistence model to a domain ProductTaxRate
func (m *TaxRateModel) ToDomain() order.ProductTaxRate {
	return order.ProductTaxRate{
		ProductID: m.ProductID,
		Title:     m.Title,
		Rate:      m.Rate,
	}
}

// StoreTaxSettingModel holds per-store tax behavior read by the tax
// settings provider.
type StoreTaxSettingModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	StoreID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	TaxIncluded bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreTaxSettingModel) TableName() string {
	return "store_tax_settings"
}

// FulfillmentLineModel tracks per-line-item fulfillment state the refund
// calculator reads: how many units are still cancelable, how many can come
// back, and where fulfilled stock lives.
type FulfillmentLineModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	StoreID    uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index:idx_fulfillment_line_order,priority:1"`
	LineItemID uuid.UUID `gorm:"type:uuid;not null;index:idx_fulfillment_line_order,priority:2"`
	LocationID uuid.UUID `gorm:"type:uuid"`
	Cancelable int       `gorm:"not null;default:0"`
	Returnable int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FulfillmentLineModel) TableName() string {
	return "fulfillment_lines"
}

// ToDomain converts the persistence model to domain RestockCounters
func (m *FulfillmentLineModel) ToDomain() order.RestockCounters {
	return order.RestockCounters{
		Cancelable:            m.Cancelable,
		Returnable:            m.Returnable,
		FulfillmentLocationID: m.LocationID,
	}
}
