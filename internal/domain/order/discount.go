package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountValueType describes how a discount application's value is read
type DiscountValueType string

const (
	DiscountValueFixedAmount DiscountValueType = "fixed_amount"
	DiscountValuePercentage  DiscountValueType = "percentage"
)

// IsValid checks if the value type is known
func (t DiscountValueType) IsValid() bool {
	return t == DiscountValueFixedAmount || t == DiscountValuePercentage
}

// DiscountTargetType describes what kind of target a discount applies to
type DiscountTargetType string

const (
	DiscountTargetLineItem     DiscountTargetType = "line_item"
	DiscountTargetShippingLine DiscountTargetType = "shipping_line"
)

// DiscountRuleType distinguishes product-level from order-level discounts
type DiscountRuleType string

const (
	DiscountRuleProduct DiscountRuleType = "product"
	DiscountRuleOrder   DiscountRuleType = "order"
)

// DiscountApplication describes one discount source: the rule allocations
// are instantiated from. It is immutable once created; its position in the
// order's application list is its identity for cross-reference, so
// applications must never be reordered or removed once allocations exist.
type DiscountApplication struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Title      string
	Code       string
	Value      decimal.Decimal
	ValueType  DiscountValueType
	TargetType DiscountTargetType
	RuleType   DiscountRuleType
	Position   int
	CreatedAt  time.Time
}

// NewDiscountApplication creates a new discount application
func NewDiscountApplication(orderID uuid.UUID, title string, value decimal.Decimal, valueType DiscountValueType, targetType DiscountTargetType, ruleType DiscountRuleType, position int) (*DiscountApplication, error) {
	if !valueType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_VALUE_TYPE", "Unknown discount value type")
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_VALUE", "Discount value cannot be negative")
	}
	if valueType == DiscountValuePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_VALUE", "Percentage discount cannot exceed 100")
	}
	if position < 0 {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_POSITION", "Application position cannot be negative")
	}

	return &DiscountApplication{
		ID:         uuid.New(),
		OrderID:    orderID,
		Title:      title,
		Value:      value,
		ValueType:  valueType,
		TargetType: targetType,
		RuleType:   ruleType,
		Position:   position,
		CreatedAt:  time.Now(),
	}, nil
}

// AmountFor computes the total monetary amount this application takes off a
// base price, before the amount is spread across targets.
func (a *DiscountApplication) AmountFor(base decimal.Decimal, scale int32) decimal.Decimal {
	switch a.ValueType {
	case DiscountValuePercentage:
		return base.Mul(a.Value).Div(decimal.NewFromInt(100)).Round(scale)
	default:
		return a.Value
	}
}

// DiscountAllocation is one concrete monetary amount a discount application
// contributes to a single line item or shipping line. Many allocations may
// reference one application.
type DiscountAllocation struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	TargetID         uuid.UUID
	TargetType       DiscountTargetType
	ApplicationIndex int
	Amount           decimal.Decimal
	CreatedAt        time.Time
}

// NewDiscountAllocation creates an allocation referencing its application by
// list position.
func NewDiscountAllocation(orderID, targetID uuid.UUID, targetType DiscountTargetType, applicationIndex int, amount decimal.Decimal) (*DiscountAllocation, error) {
	if applicationIndex < 0 {
		return nil, shared.NewDomainError("INVALID_APPLICATION_INDEX", "Application index cannot be negative")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_ALLOCATION_AMOUNT", "Allocation amount cannot be negative")
	}

	return &DiscountAllocation{
		ID:               uuid.New(),
		OrderID:          orderID,
		TargetID:         targetID,
		TargetType:       targetType,
		ApplicationIndex: applicationIndex,
		Amount:           amount,
		CreatedAt:        time.Now(),
	}, nil
}
