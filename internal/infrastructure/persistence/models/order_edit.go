package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderEditModel is the persistence model for the OrderEdit aggregate root.
type OrderEditModel struct {
	StoreAggregateModel
	OrderID                  uuid.UUID                       `gorm:"type:uuid;not null;index:idx_order_edit_order_status,priority:1"`
	Status                   order.EditStatus                `gorm:"type:varchar(20);not null;default:'open';index:idx_order_edit_order_status,priority:2"`
	Currency                 string                          `gorm:"type:varchar(3);not null"`
	TaxExempt                bool                            `gorm:"not null;default:false"`
	TaxIncluded              bool                            `gorm:"not null;default:false"`
	SubtotalLineItemQuantity int                             `gorm:"not null;default:0"`
	SubtotalPrice            decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:0"`
	CartDiscountAmount       decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTax                 decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice               decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:0"`
	TotalOutstanding         decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:0"`
	StagedChanges            []StagedChangeModel             `gorm:"foreignKey:EditID;references:ID"`
	AddedLineItems           []AddedLineItemModel            `gorm:"foreignKey:EditID;references:ID"`
	AddedTaxLines            []AddedTaxLineModel             `gorm:"foreignKey:EditID;references:ID"`
	AddedApplications        []AddedDiscountApplicationModel `gorm:"foreignKey:EditID;references:ID"`
	AddedAllocations         []AddedDiscountAllocationModel  `gorm:"foreignKey:EditID;references:ID"`
	CommittedAt              *time.Time
}

// TableName returns the table name for GORM
func (OrderEditModel) TableName() string {
	return "order_edits"
}

// ToDomain converts the persistence model to a domain OrderEdit aggregate.
// Staged change payloads are decoded from their stored discriminator and
// returned in ledger order.
func (m *OrderEditModel) ToDomain() (*order.OrderEdit, error) {
	edit := &order.OrderEdit{
		OrderID:                  m.OrderID,
		Status:                   m.Status,
		Currency:                 valueobject.Currency(m.Currency),
		TaxExempt:                m.TaxExempt,
		TaxIncluded:              m.TaxIncluded,
		SubtotalLineItemQuantity: m.SubtotalLineItemQuantity,
		SubtotalPrice:            m.SubtotalPrice,
		CartDiscountAmount:       m.CartDiscountAmount,
		TotalTax:                 m.TotalTax,
		TotalPrice:               m.TotalPrice,
		TotalOutstanding:         m.TotalOutstanding,
		CommittedAt:              m.CommittedAt,
	}
	m.PopulateStoreAggregateRoot(&edit.StoreAggregateRoot)

	changes := make([]StagedChangeModel, len(m.StagedChanges))
	copy(changes, m.StagedChanges)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Position < changes[j].Position })
	edit.StagedChanges = make([]*order.StagedChange, len(changes))
	for i := range changes {
		change, err := changes[i].ToDomain()
		if err != nil {
			return nil, err
		}
		edit.StagedChanges[i] = change
	}

	edit.AddedLineItems = make([]*order.AddedLineItem, len(m.AddedLineItems))
	for i := range m.AddedLineItems {
		edit.AddedLineItems[i] = m.AddedLineItems[i].ToDomain()
	}
	edit.AddedTaxLines = make([]*order.AddedTaxLine, len(m.AddedTaxLines))
	for i := range m.AddedTaxLines {
		edit.AddedTaxLines[i] = m.AddedTaxLines[i].ToDomain()
	}
	edit.AddedApplications = make([]*order.AddedDiscountApplication, len(m.AddedApplications))
	for i := range m.AddedApplications {
		edit.AddedApplications[i] = m.AddedApplications[i].ToDomain()
	}
	edit.AddedAllocations = make([]*order.AddedDiscountAllocation, len(m.AddedAllocations))
	for i := range m.AddedAllocations {
		edit.AddedAllocations[i] = m.AddedAllocations[i].ToDomain()
	}
	return edit, nil
}

// FromDomain populates the persistence model from a domain OrderEdit aggregate.
func (m *OrderEditModel) FromDomain(e *order.OrderEdit) error {
	m.FromDomainStoreAggregateRoot(e.StoreAggregateRoot)
	m.OrderID = e.OrderID
	m.Status = e.Status
	m.Currency = string(e.Currency)
	m.TaxExempt = e.TaxExempt
	m.TaxIncluded = e.TaxIncluded
	m.SubtotalLineItemQuantity = e.SubtotalLineItemQuantity
	m.SubtotalPrice = e.SubtotalPrice
	m.CartDiscountAmount = e.CartDiscountAmount
	m.TotalTax = e.TotalTax
	m.TotalPrice = e.TotalPrice
	m.TotalOutstanding = e.TotalOutstanding
	m.CommittedAt = e.CommittedAt

	m.StagedChanges = make([]StagedChangeModel, len(e.StagedChanges))
	for i, change := range e.StagedChanges {
		model, err := StagedChangeModelFromDomain(change, i)
		if err != nil {
			return err
		}
		m.StagedChanges[i] = *model
	}

	m.AddedLineItems = make([]AddedLineItemModel, len(e.AddedLineItems))
	for i, item := range e.AddedLineItems {
		m.AddedLineItems[i] = *AddedLineItemModelFromDomain(item)
	}
	m.AddedTaxLines = make([]AddedTaxLineModel, len(e.AddedTaxLines))
	for i, tax := range e.AddedTaxLines {
		m.AddedTaxLines[i] = *AddedTaxLineModelFromDomain(tax)
	}
	m.AddedApplications = make([]AddedDiscountApplicationModel, len(e.AddedApplications))
	for i, app := range e.AddedApplications {
		m.AddedApplications[i] = *AddedDiscountApplicationModelFromDomain(app)
	}
	m.AddedAllocations = make([]AddedDiscountAllocationModel, len(e.AddedAllocations))
	for i, alloc := range e.AddedAllocations {
		m.AddedAllocations[i] = *AddedDiscountAllocationModelFromDomain(alloc)
	}
	return nil
}

// OrderEditModelFromDomain creates a new persistence model from a domain OrderEdit aggregate.
func OrderEditModelFromDomain(e *order.OrderEdit) (*OrderEditModel, error) {
	m := &OrderEditModel{}
	if err := m.FromDomain(e); err != nil {
		return nil, err
	}
	return m, nil
}

// StagedChangeModel is the persistence model for the StagedChange entity.
// The payload is stored as a kind discriminator plus serialized JSON;
// Position preserves ledger order across loads.
type StagedChangeModel struct {
	ID        uuid.UUID              `gorm:"type:uuid;primary_key"`
	EditID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	Kind      order.StagedChangeKind `gorm:"type:varchar(30);not null"`
	Payload   []byte                 `gorm:"type:jsonb;not null"`
	Position  int                    `gorm:"not null;default:0"`
	CreatedAt time.Time              `gorm:"not null"`
	UpdatedAt time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StagedChangeModel) TableName() string {
	return "order_edit_staged_changes"
}

// ToDomain converts the persistence model to a domain StagedChange entity.
func (m *StagedChangeModel) ToDomain() (*order.StagedChange, error) {
	payload, err := order.DecodeStagedChangePayload(m.Kind, m.Payload)
	if err != nil {
		return nil, err
	}
	return &order.StagedChange{
		ID:        m.ID,
		EditID:    m.EditID,
		Payload:   payload,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// FromDomain populates the persistence model from a domain StagedChange entity.
func (m *StagedChangeModel) FromDomain(c *order.StagedChange, position int) error {
	data, err := order.EncodeStagedChangePayload(c.Payload)
	if err != nil {
		return err
	}
	m.ID = c.ID
	m.EditID = c.EditID
	m.Kind = c.Kind()
	m.Payload = data
	m.Position = position
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
	return nil
}

// StagedChangeModelFromDomain creates a new persistence model from a domain StagedChange entity.
func StagedChangeModelFromDomain(c *order.StagedChange, position int) (*StagedChangeModel, error) {
	m := &StagedChangeModel{}
	if err := m.FromDomain(c, position); err != nil {
		return nil, err
	}
	return m, nil
}

// AddedLineItemModel is the persistence model for the AddedLineItem entity.
type AddedLineItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	EditID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID        uuid.UUID       `gorm:"type:uuid"`
	ProductID        uuid.UUID       `gorm:"type:uuid"`
	Title            string          `gorm:"type:varchar(255);not null"`
	SKU              string          `gorm:"type:varchar(100)"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity         int             `gorm:"not null"`
	Taxable          bool            `gorm:"not null;default:true"`
	RequiresShipping bool            `gorm:"not null;default:true"`
	Custom           bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AddedLineItemModel) TableName() string {
	return "order_edit_line_items"
}

// ToDomain converts the persistence model to a domain AddedLineItem entity.
func (m *AddedLineItemModel) ToDomain() *order.AddedLineItem {
	return &order.AddedLineItem{
		ID:               m.ID,
		EditID:           m.EditID,
		VariantID:        m.VariantID,
		ProductID:        m.ProductID,
		Title:            m.Title,
		SKU:              m.SKU,
		Price:            m.Price,
		OriginalPrice:    m.OriginalPrice,
		Quantity:         m.Quantity,
		Taxable:          m.Taxable,
		RequiresShipping: m.RequiresShipping,
		Custom:           m.Custom,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain AddedLineItem entity.
func (m *AddedLineItemModel) FromDomain(i *order.AddedLineItem) {
	m.ID = i.ID
	m.EditID = i.EditID
	m.VariantID = i.VariantID
	m.ProductID = i.ProductID
	m.Title = i.Title
	m.SKU = i.SKU
	m.Price = i.Price
	m.OriginalPrice = i.OriginalPrice
	m.Quantity = i.Quantity
	m.Taxable = i.Taxable
	m.RequiresShipping = i.RequiresShipping
	m.Custom = i.Custom
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// AddedLineItemModelFromDomain creates a new persistence model from a domain AddedLineItem entity.
func AddedLineItemModelFromDomain(i *order.AddedLineItem) *AddedLineItemModel {
	m := &AddedLineItemModel{}
	m.FromDomain(i)
	return m
}

// AddedTaxLineModel is the persistence model for the AddedTaxLine entity.
type AddedTaxLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	EditID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	AddedLineItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title           string          `gorm:"type:varchar(255);not null"`
	Rate            decimal.Decimal `gorm:"type:decimal(10,6);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity        int             `gorm:"not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AddedTaxLineModel) TableName() string {
	return "order_edit_tax_lines"
}

// ToDomain converts the persistence model to a domain AddedTaxLine entity.
func (m *AddedTaxLineModel) ToDomain() *order.AddedTaxLine {
	return &order.AddedTaxLine{
		ID:              m.ID,
		EditID:          m.EditID,
		AddedLineItemID: m.AddedLineItemID,
		Title:           m.Title,
		Rate:            m.Rate,
		Price:           m.Price,
		Quantity:        m.Quantity,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain AddedTaxLine entity.
func (m *AddedTaxLineModel) FromDomain(t *order.AddedTaxLine) {
	m.ID = t.ID
	m.EditID = t.EditID
	m.AddedLineItemID = t.AddedLineItemID
	m.Title = t.Title
	m.Rate = t.Rate
	m.Price = t.Price
	m.Quantity = t.Quantity
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// AddedTaxLineModelFromDomain creates a new persistence model from a domain AddedTaxLine entity.
func AddedTaxLineModelFromDomain(t *order.AddedTaxLine) *AddedTaxLineModel {
	m := &AddedTaxLineModel{}
	m.FromDomain(t)
	return m
}

// AddedDiscountApplicationModel is the persistence model for the AddedDiscountApplication entity.
type AddedDiscountApplicationModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primary_key"`
	EditID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	Title     string                  `gorm:"type:varchar(255)"`
	Value     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	ValueType order.DiscountValueType `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AddedDiscountApplicationModel) TableName() string {
	return "order_edit_discount_applications"
}

// ToDomain converts the persistence model to a domain AddedDiscountApplication entity.
func (m *AddedDiscountApplicationModel) ToDomain() *order.AddedDiscountApplication {
	return &order.AddedDiscountApplication{
		ID:        m.ID,
		EditID:    m.EditID,
		Title:     m.Title,
		Value:     m.Value,
		ValueType: m.ValueType,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain AddedDiscountApplication entity.
func (m *AddedDiscountApplicationModel) FromDomain(a *order.AddedDiscountApplication) {
	m.ID = a.ID
	m.EditID = a.EditID
	m.Title = a.Title
	m.Value = a.Value
	m.ValueType = a.ValueType
	m.CreatedAt = a.CreatedAt
}

// AddedDiscountApplicationModelFromDomain creates a new persistence model from a domain AddedDiscountApplication entity.
func AddedDiscountApplicationModelFromDomain(a *order.AddedDiscountApplication) *AddedDiscountApplicationModel {
	m := &AddedDiscountApplicationModel{}
	m.FromDomain(a)
	return m
}

// AddedDiscountAllocationModel is the persistence model for the AddedDiscountAllocation entity.
type AddedDiscountAllocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	EditID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ApplicationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	TargetID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AddedDiscountAllocationModel) TableName() string {
	return "order_edit_discount_allocations"
}

// ToDomain converts the persistence model to a domain AddedDiscountAllocation entity.
func (m *AddedDiscountAllocationModel) ToDomain() *order.AddedDiscountAllocation {
	return &order.AddedDiscountAllocation{
		ID:            m.ID,
		EditID:        m.EditID,
		ApplicationID: m.ApplicationID,
		TargetID:      m.TargetID,
		Amount:        m.Amount,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain AddedDiscountAllocation entity.
func (m *AddedDiscountAllocationModel) FromDomain(a *order.AddedDiscountAllocation) {
	m.ID = a.ID
	m.EditID = a.EditID
	m.ApplicationID = a.ApplicationID
	m.TargetID = a.TargetID
	m.Amount = a.Amount
	m.CreatedAt = a.CreatedAt
}

// AddedDiscountAllocationModelFromDomain creates a new persistence model from a domain AddedDiscountAllocation entity.
func AddedDiscountAllocationModelFromDomain(a *order.AddedDiscountAllocation) *AddedDiscountAllocationModel {
	m := &AddedDiscountAllocationModel{}
	m.FromDomain(a)
	return m
}
