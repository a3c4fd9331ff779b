package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root. Tax
// lines and discount allocations are stored as order-level tables and
// distributed to their line item or shipping line targets when loading.
type OrderModel struct {
	StoreAggregateModel
	Number           string                     `gorm:"type:varchar(50);not null;uniqueIndex:idx_order_store_number,priority:2"`
	Currency         string                     `gorm:"type:varchar(3);not null"`
	Status           order.Status               `gorm:"type:varchar(20);not null;default:'open';index"`
	TaxExempt        bool                       `gorm:"not null;default:false"`
	TaxIncluded      bool                       `gorm:"not null;default:false"`
	CountryCode      string                     `gorm:"type:varchar(2)"`
	Note             string                     `gorm:"type:text"`
	SubtotalPrice    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDiscount    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTax         decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalShipping    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice       decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalReceived    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalRefunded    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalOutstanding decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	LineItems        []LineItemModel            `gorm:"foreignKey:OrderID;references:ID"`
	ShippingLines    []ShippingLineModel        `gorm:"foreignKey:OrderID;references:ID"`
	TaxLines         []TaxLineModel             `gorm:"foreignKey:OrderID;references:ID"`
	RefundTaxLines   []RefundTaxLineModel       `gorm:"foreignKey:OrderID;references:ID"`
	Applications     []DiscountApplicationModel `gorm:"foreignKey:OrderID;references:ID"`
	Allocations      []DiscountAllocationModel  `gorm:"foreignKey:OrderID;references:ID"`
	Refunds          []RefundModel              `gorm:"foreignKey:OrderID;references:ID"`
	ClosedAt         *time.Time
	CancelledAt      *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		Number:      m.Number,
		Currency:    valueobject.Currency(m.Currency),
		Status:      m.Status,
		TaxExempt:   m.TaxExempt,
		TaxIncluded: m.TaxIncluded,
		CountryCode: m.CountryCode,
		Note:        m.Note,
		MoneyInfo: order.MoneyInfo{
			SubtotalPrice:    m.SubtotalPrice,
			TotalDiscount:    m.TotalDiscount,
			TotalTax:         m.TotalTax,
			TotalShipping:    m.TotalShipping,
			TotalPrice:       m.TotalPrice,
			TotalReceived:    m.TotalReceived,
			TotalRefunded:    m.TotalRefunded,
			TotalOutstanding: m.TotalOutstanding,
		},
		ClosedAt:    m.ClosedAt,
		CancelledAt: m.CancelledAt,
	}
	m.PopulateStoreAggregateRoot(&o.StoreAggregateRoot)

	taxByTarget := make(map[uuid.UUID][]*order.TaxLine)
	sorted := make([]TaxLineModel, len(m.TaxLines))
	copy(sorted, m.TaxLines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	for i := range sorted {
		line := sorted[i].ToDomain()
		taxByTarget[line.TargetID] = append(taxByTarget[line.TargetID], line)
	}

	allocByTarget := make(map[uuid.UUID][]*order.DiscountAllocation)
	for i := range m.Allocations {
		alloc := m.Allocations[i].ToDomain()
		allocByTarget[alloc.TargetID] = append(allocByTarget[alloc.TargetID], alloc)
	}

	o.LineItems = make([]*order.LineItem, len(m.LineItems))
	for i := range m.LineItems {
		item := m.LineItems[i].ToDomain()
		item.TaxLines = taxByTarget[item.ID]
		item.Allocations = allocByTarget[item.ID]
		o.LineItems[i] = item
	}

	o.ShippingLines = make([]*order.ShippingLine, len(m.ShippingLines))
	for i := range m.ShippingLines {
		line := m.ShippingLines[i].ToDomain()
		line.TaxLines = taxByTarget[line.ID]
		line.Allocations = allocByTarget[line.ID]
		o.ShippingLines[i] = line
	}

	o.Applications = make([]*order.DiscountApplication, len(m.Applications))
	for i := range m.Applications {
		o.Applications[i] = m.Applications[i].ToDomain()
	}
	sort.Slice(o.Applications, func(i, j int) bool { return o.Applications[i].Position < o.Applications[j].Position })

	o.RefundTaxLines = make([]*order.RefundTaxLine, len(m.RefundTaxLines))
	for i := range m.RefundTaxLines {
		o.RefundTaxLines[i] = m.RefundTaxLines[i].ToDomain()
	}

	o.Refunds = make([]*order.Refund, len(m.Refunds))
	for i := range m.Refunds {
		o.Refunds[i] = m.Refunds[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order aggregate.
// Per-target tax lines and allocations are flattened into the order-level
// collections.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainStoreAggregateRoot(o.StoreAggregateRoot)
	m.Number = o.Number
	m.Currency = string(o.Currency)
	m.Status = o.Status
	m.TaxExempt = o.TaxExempt
	m.TaxIncluded = o.TaxIncluded
	m.CountryCode = o.CountryCode
	m.Note = o.Note
	m.SubtotalPrice = o.MoneyInfo.SubtotalPrice
	m.TotalDiscount = o.MoneyInfo.TotalDiscount
	m.TotalTax = o.MoneyInfo.TotalTax
	m.TotalShipping = o.MoneyInfo.TotalShipping
	m.TotalPrice = o.MoneyInfo.TotalPrice
	m.TotalReceived = o.MoneyInfo.TotalReceived
	m.TotalRefunded = o.MoneyInfo.TotalRefunded
	m.TotalOutstanding = o.MoneyInfo.TotalOutstanding
	m.ClosedAt = o.ClosedAt
	m.CancelledAt = o.CancelledAt

	m.LineItems = make([]LineItemModel, len(o.LineItems))
	m.TaxLines = nil
	m.Allocations = nil
	for i, item := range o.LineItems {
		m.LineItems[i] = *LineItemModelFromDomain(item)
		for _, line := range item.TaxLines {
			m.TaxLines = append(m.TaxLines, *TaxLineModelFromDomain(line))
		}
		for _, alloc := range item.Allocations {
			m.Allocations = append(m.Allocations, *DiscountAllocationModelFromDomain(alloc))
		}
	}

	m.ShippingLines = make([]ShippingLineModel, len(o.ShippingLines))
	for i, line := range o.ShippingLines {
		m.ShippingLines[i] = *ShippingLineModelFromDomain(line)
		for _, tax := range line.TaxLines {
			m.TaxLines = append(m.TaxLines, *TaxLineModelFromDomain(tax))
		}
		for _, alloc := range line.Allocations {
			m.Allocations = append(m.Allocations, *DiscountAllocationModelFromDomain(alloc))
		}
	}

	m.Applications = make([]DiscountApplicationModel, len(o.Applications))
	for i, app := range o.Applications {
		m.Applications[i] = *DiscountApplicationModelFromDomain(app)
	}

	m.RefundTaxLines = make([]RefundTaxLineModel, len(o.RefundTaxLines))
	for i, rtl := range o.RefundTaxLines {
		m.RefundTaxLines[i] = *RefundTaxLineModelFromDomain(rtl)
	}

	m.Refunds = make([]RefundModel, len(o.Refunds))
	for i, refund := range o.Refunds {
		m.Refunds[i] = *RefundModelFromDomain(refund)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order aggregate.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// LineItemModel is the persistence model for the LineItem entity.
type LineItemModel struct {
	ID                  uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID             uuid.UUID               `gorm:"type:uuid;not null;index"`
	VariantID           uuid.UUID               `gorm:"type:uuid;index"`
	ProductID           uuid.UUID               `gorm:"type:uuid;index"`
	Title               string                  `gorm:"type:varchar(255);not null"`
	SKU                 string                  `gorm:"type:varchar(100)"`
	Price               decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Quantity            int                     `gorm:"not null"`
	FulfillableQuantity int                     `gorm:"not null"`
	CurrentQuantity     int                     `gorm:"not null"`
	RefundableQuantity  int                     `gorm:"not null"`
	FulfillmentStatus   order.FulfillmentStatus `gorm:"type:varchar(20);not null;default:'unfulfilled'"`
	Taxable             bool                    `gorm:"not null;default:true"`
	RequiresShipping    bool                    `gorm:"not null;default:true"`
	Custom              bool                    `gorm:"not null;default:false"`
	CreatedAt           time.Time               `gorm:"not null"`
	UpdatedAt           time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "order_line_items"
}

// ToDomain converts the persistence model to a domain LineItem entity.
// Tax lines and allocations are attached by the owning OrderModel.
func (m *LineItemModel) ToDomain() *order.LineItem {
	return &order.LineItem{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		VariantID:           m.VariantID,
		ProductID:           m.ProductID,
		Title:               m.Title,
		SKU:                 m.SKU,
		Price:               m.Price,
		Quantity:            m.Quantity,
		FulfillableQuantity: m.FulfillableQuantity,
		CurrentQuantity:     m.CurrentQuantity,
		RefundableQuantity:  m.RefundableQuantity,
		FulfillmentStatus:   m.FulfillmentStatus,
		Taxable:             m.Taxable,
		RequiresShipping:    m.RequiresShipping,
		Custom:              m.Custom,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LineItem entity.
func (m *LineItemModel) FromDomain(i *order.LineItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.VariantID = i.VariantID
	m.ProductID = i.ProductID
	m.Title = i.Title
	m.SKU = i.SKU
	m.Price = i.Price
	m.Quantity = i.Quantity
	m.FulfillableQuantity = i.FulfillableQuantity
	m.CurrentQuantity = i.CurrentQuantity
	m.RefundableQuantity = i.RefundableQuantity
	m.FulfillmentStatus = i.FulfillmentStatus
	m.Taxable = i.Taxable
	m.RequiresShipping = i.RequiresShipping
	m.Custom = i.Custom
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// LineItemModelFromDomain creates a new persistence model from a domain LineItem entity.
func LineItemModelFromDomain(i *order.LineItem) *LineItemModel {
	m := &LineItemModel{}
	m.FromDomain(i)
	return m
}

// ShippingLineModel is the persistence model for the ShippingLine entity.
type ShippingLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(255);not null"`
	Code      string          `gorm:"type:varchar(100)"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingLineModel) TableName() string {
	return "order_shipping_lines"
}

// ToDomain converts the persistence model to a domain ShippingLine entity.
func (m *ShippingLineModel) ToDomain() *order.ShippingLine {
	return &order.ShippingLine{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Title:     m.Title,
		Code:      m.Code,
		Price:     m.Price,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ShippingLine entity.
func (m *ShippingLineModel) FromDomain(s *order.ShippingLine) {
	m.ID = s.ID
	m.OrderID = s.OrderID
	m.Title = s.Title
	m.Code = s.Code
	m.Price = s.Price
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// ShippingLineModelFromDomain creates a new persistence model from a domain ShippingLine entity.
func ShippingLineModelFromDomain(s *order.ShippingLine) *ShippingLineModel {
	m := &ShippingLineModel{}
	m.FromDomain(s)
	return m
}

// TaxLineModel is the persistence model for the TaxLine entity.
type TaxLineModel struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	TargetID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	TargetType order.TaxTargetType `gorm:"type:varchar(20);not null"`
	Title      string              `gorm:"type:varchar(255);not null"`
	Rate       decimal.Decimal     `gorm:"type:decimal(10,6);not null"`
	Price      decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Quantity   int                 `gorm:"not null"`
	Custom     bool                `gorm:"not null;default:false"`
	Position   int                 `gorm:"not null;default:0"`
	CreatedAt  time.Time           `gorm:"not null"`
	UpdatedAt  time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxLineModel) TableName() string {
	return "order_tax_lines"
}

// ToDomain converts the persistence model to a domain TaxLine entity.
func (m *TaxLineModel) ToDomain() *order.TaxLine {
	return &order.TaxLine{
		ID:         m.ID,
		OrderID:    m.OrderID,
		TargetID:   m.TargetID,
		TargetType: m.TargetType,
		Title:      m.Title,
		Rate:       m.Rate,
		Price:      m.Price,
		Quantity:   m.Quantity,
		Custom:     m.Custom,
		Position:   m.Position,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain TaxLine entity.
func (m *TaxLineModel) FromDomain(t *order.TaxLine) {
	m.ID = t.ID
	m.OrderID = t.OrderID
	m.TargetID = t.TargetID
	m.TargetType = t.TargetType
	m.Title = t.Title
	m.Rate = t.Rate
	m.Price = t.Price
	m.Quantity = t.Quantity
	m.Custom = t.Custom
	m.Position = t.Position
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// TaxLineModelFromDomain creates a new persistence model from a domain TaxLine entity.
func TaxLineModelFromDomain(t *order.TaxLine) *TaxLineModel {
	m := &TaxLineModel{}
	m.FromDomain(t)
	return m
}

// RefundTaxLineModel is the persistence model for the RefundTaxLine entity.
type RefundTaxLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_refund_tax_line_order,priority:1"`
	TaxLineID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_refund_tax_line_order,priority:2"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundTaxLineModel) TableName() string {
	return "order_refund_tax_lines"
}

// ToDomain converts the persistence model to a domain RefundTaxLine entity.
func (m *RefundTaxLineModel) ToDomain() *order.RefundTaxLine {
	return &order.RefundTaxLine{
		ID:        m.ID,
		OrderID:   m.OrderID,
		TaxLineID: m.TaxLineID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain RefundTaxLine entity.
func (m *RefundTaxLineModel) FromDomain(t *order.RefundTaxLine) {
	m.ID = t.ID
	m.OrderID = t.OrderID
	m.TaxLineID = t.TaxLineID
	m.Amount = t.Amount
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// RefundTaxLineModelFromDomain creates a new persistence model from a domain RefundTaxLine entity.
func RefundTaxLineModelFromDomain(t *order.RefundTaxLine) *RefundTaxLineModel {
	m := &RefundTaxLineModel{}
	m.FromDomain(t)
	return m
}

// DiscountApplicationModel is the persistence model for the DiscountApplication entity.
type DiscountApplicationModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	Title      string                   `gorm:"type:varchar(255)"`
	Code       string                   `gorm:"type:varchar(100)"`
	Value      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	ValueType  order.DiscountValueType  `gorm:"type:varchar(20);not null"`
	TargetType order.DiscountTargetType `gorm:"type:varchar(20);not null"`
	RuleType   order.DiscountRuleType   `gorm:"type:varchar(20);not null"`
	Position   int                      `gorm:"not null;default:0"`
	CreatedAt  time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountApplicationModel) TableName() string {
	return "order_discount_applications"
}

// ToDomain converts the persistence model to a domain DiscountApplication entity.
func (m *DiscountApplicationModel) ToDomain() *order.DiscountApplication {
	return &order.DiscountApplication{
		ID:         m.ID,
		OrderID:    m.OrderID,
		Title:      m.Title,
		Code:       m.Code,
		Value:      m.Value,
		ValueType:  m.ValueType,
		TargetType: m.TargetType,
		RuleType:   m.RuleType,
		Position:   m.Position,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain DiscountApplication entity.
func (m *DiscountApplicationModel) FromDomain(a *order.DiscountApplication) {
	m.ID = a.ID
	m.OrderID = a.OrderID
	m.Title = a.Title
	m.Code = a.Code
	m.Value = a.Value
	m.ValueType = a.ValueType
	m.TargetType = a.TargetType
	m.RuleType = a.RuleType
	m.Position = a.Position
	m.CreatedAt = a.CreatedAt
}

// DiscountApplicationModelFromDomain creates a new persistence model from a domain DiscountApplication entity.
func DiscountApplicationModelFromDomain(a *order.DiscountApplication) *DiscountApplicationModel {
	m := &DiscountApplicationModel{}
	m.FromDomain(a)
	return m
}

// DiscountAllocationModel is the persistence model for the DiscountAllocation entity.
type DiscountAllocationModel struct {
	ID               uuid.UUID                `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID                `gorm:"type:uuid;not null;index"`
	TargetID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	TargetType       order.DiscountTargetType `gorm:"type:varchar(20);not null"`
	ApplicationIndex int                      `gorm:"not null"`
	Amount           decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountAllocationModel) TableName() string {
	return "order_discount_allocations"
}

// ToDomain converts the persistence model to a domain DiscountAllocation entity.
func (m *DiscountAllocationModel) ToDomain() *order.DiscountAllocation {
	return &order.DiscountAllocation{
		ID:               m.ID,
		OrderID:          m.OrderID,
		TargetID:         m.TargetID,
		TargetType:       m.TargetType,
		ApplicationIndex: m.ApplicationIndex,
		Amount:           m.Amount,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain DiscountAllocation entity.
func (m *DiscountAllocationModel) FromDomain(a *order.DiscountAllocation) {
	m.ID = a.ID
	m.OrderID = a.OrderID
	m.TargetID = a.TargetID
	m.TargetType = a.TargetType
	m.ApplicationIndex = a.ApplicationIndex
	m.Amount = a.Amount
	m.CreatedAt = a.CreatedAt
}

// DiscountAllocationModelFromDomain creates a new persistence model from a domain DiscountAllocation entity.
func DiscountAllocationModelFromDomain(a *order.DiscountAllocation) *DiscountAllocationModel {
	m := &DiscountAllocationModel{}
	m.FromDomain(a)
	return m
}

// RefundModel is the persistence model for the Refund entity.
type RefundModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID                `gorm:"type:uuid;not null;index"`
	Note          string                   `gorm:"type:text"`
	TotalRefunded decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	LineItems     []RefundLineItemModel    `gorm:"foreignKey:RefundID;references:ID"`
	Adjustments   []OrderAdjustmentModel   `gorm:"foreignKey:RefundID;references:ID"`
	Transactions  []RefundTransactionModel `gorm:"foreignKey:RefundID;references:ID"`
	CreatedAt     time.Time                `gorm:"not null"`
	UpdatedAt     time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundModel) TableName() string {
	return "refunds"
}

// ToDomain converts the persistence model to a domain Refund entity.
func (m *RefundModel) ToDomain() *order.Refund {
	refund := &order.Refund{
		ID:            m.ID,
		OrderID:       m.OrderID,
		Note:          m.Note,
		TotalRefunded: m.TotalRefunded,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		LineItems:     make([]*order.RefundLineItem, len(m.LineItems)),
		Adjustments:   make([]*order.OrderAdjustment, len(m.Adjustments)),
		Transactions:  make([]*order.RefundTransaction, len(m.Transactions)),
	}
	for i := range m.LineItems {
		refund.LineItems[i] = m.LineItems[i].ToDomain()
	}
	for i := range m.Adjustments {
		refund.Adjustments[i] = m.Adjustments[i].ToDomain()
	}
	for i := range m.Transactions {
		refund.Transactions[i] = m.Transactions[i].ToDomain()
	}
	return refund
}

// FromDomain populates the persistence model from a domain Refund entity.
func (m *RefundModel) FromDomain(r *order.Refund) {
	m.ID = r.ID
	m.OrderID = r.OrderID
	m.Note = r.Note
	m.TotalRefunded = r.TotalRefunded
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.LineItems = make([]RefundLineItemModel, len(r.LineItems))
	for i, item := range r.LineItems {
		m.LineItems[i] = *RefundLineItemModelFromDomain(item)
	}
	m.Adjustments = make([]OrderAdjustmentModel, len(r.Adjustments))
	for i, adj := range r.Adjustments {
		m.Adjustments[i] = *OrderAdjustmentModelFromDomain(adj)
	}
	m.Transactions = make([]RefundTransactionModel, len(r.Transactions))
	for i, tx := range r.Transactions {
		m.Transactions[i] = *RefundTransactionModelFromDomain(tx)
	}
}

// RefundModelFromDomain creates a new persistence model from a domain Refund entity.
func RefundModelFromDomain(r *order.Refund) *RefundModel {
	m := &RefundModel{}
	m.FromDomain(r)
	return m
}

// RefundLineItemModel is the persistence model for the RefundLineItem entity.
type RefundLineItemModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key"`
	RefundID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	LineItemID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Quantity    int               `gorm:"not null"`
	RestockType order.RestockType `gorm:"type:varchar(20);not null"`
	RemoveLine  bool              `gorm:"not null;default:false"`
	LocationID  uuid.UUID         `gorm:"type:uuid"`
	Subtotal    decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTax    decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt   time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundLineItemModel) TableName() string {
	return "refund_line_items"
}

// ToDomain converts the persistence model to a domain RefundLineItem entity.
func (m *RefundLineItemModel) ToDomain() *order.RefundLineItem {
	return &order.RefundLineItem{
		ID:          m.ID,
		RefundID:    m.RefundID,
		LineItemID:  m.LineItemID,
		Quantity:    m.Quantity,
		RestockType: m.RestockType,
		RemoveLine:  m.RemoveLine,
		LocationID:  m.LocationID,
		Subtotal:    m.Subtotal,
		TotalTax:    m.TotalTax,
		CreatedAt:   m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain RefundLineItem entity.
func (m *RefundLineItemModel) FromDomain(i *order.RefundLineItem) {
	m.ID = i.ID
	m.RefundID = i.RefundID
	m.LineItemID = i.LineItemID
	m.Quantity = i.Quantity
	m.RestockType = i.RestockType
	m.RemoveLine = i.RemoveLine
	m.LocationID = i.LocationID
	m.Subtotal = i.Subtotal
	m.TotalTax = i.TotalTax
	m.CreatedAt = i.CreatedAt
}

// RefundLineItemModelFromDomain creates a new persistence model from a domain RefundLineItem entity.
func RefundLineItemModelFromDomain(i *order.RefundLineItem) *RefundLineItemModel {
	m := &RefundLineItemModel{}
	m.FromDomain(i)
	return m
}

// OrderAdjustmentModel is the persistence model for the OrderAdjustment entity.
type OrderAdjustmentModel struct {
	ID        uuid.UUID                 `gorm:"type:uuid;primary_key"`
	RefundID  uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Kind      order.OrderAdjustmentKind `gorm:"type:varchar(30);not null"`
	Amount    decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt time.Time                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderAdjustmentModel) TableName() string {
	return "order_adjustments"
}

// ToDomain converts the persistence model to a domain OrderAdjustment entity.
func (m *OrderAdjustmentModel) ToDomain() *order.OrderAdjustment {
	return &order.OrderAdjustment{
		ID:        m.ID,
		RefundID:  m.RefundID,
		Kind:      m.Kind,
		Amount:    m.Amount,
		TaxAmount: m.TaxAmount,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderAdjustment entity.
func (m *OrderAdjustmentModel) FromDomain(a *order.OrderAdjustment) {
	m.ID = a.ID
	m.RefundID = a.RefundID
	m.Kind = a.Kind
	m.Amount = a.Amount
	m.TaxAmount = a.TaxAmount
	m.CreatedAt = a.CreatedAt
}

// OrderAdjustmentModelFromDomain creates a new persistence model from a domain OrderAdjustment entity.
func OrderAdjustmentModelFromDomain(a *order.OrderAdjustment) *OrderAdjustmentModel {
	m := &OrderAdjustmentModel{}
	m.FromDomain(a)
	return m
}

// RefundTransactionModel is the persistence model for the RefundTransaction entity.
type RefundTransactionModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primary_key"`
	RefundID  uuid.UUID               `gorm:"type:uuid;not null;index"`
	Gateway   string                  `gorm:"type:varchar(100);not null"`
	Amount    decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Status    order.TransactionStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundTransactionModel) TableName() string {
	return "refund_transactions"
}

// ToDomain converts the persistence model to a domain RefundTransaction entity.
func (m *RefundTransactionModel) ToDomain() *order.RefundTransaction {
	return &order.RefundTransaction{
		ID:        m.ID,
		RefundID:  m.RefundID,
		Gateway:   m.Gateway,
		Amount:    m.Amount,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain RefundTransaction entity.
func (m *RefundTransactionModel) FromDomain(t *order.RefundTransaction) {
	m.ID = t.ID
	m.RefundID = t.RefundID
	m.Gateway = t.Gateway
	m.Amount = t.Amount
	m.Status = t.Status
	m.CreatedAt = t.CreatedAt
}

// RefundTransactionModelFromDomain creates a new persistence model from a domain RefundTransaction entity.
func RefundTransactionModelFromDomain(t *order.RefundTransaction) *RefundTransactionModel {
	m := &RefundTransactionModel{}
	m.FromDomain(t)
	return m
}
