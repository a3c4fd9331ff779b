package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StagedChangeKind discriminates staged change payloads
type StagedChangeKind string

const (
	StagedAddVariant      StagedChangeKind = "add_variant"
	StagedAddCustomItem   StagedChangeKind = "add_custom_item"
	StagedIncrementItem   StagedChangeKind = "increment_item"
	StagedDecrementItem   StagedChangeKind = "decrement_item"
	StagedAddItemDiscount StagedChangeKind = "add_item_discount"
)

// StagedChangePayload is one variant of the staged change union. Each
// variant names its own kind; decoding switches on the stored
// discriminator rather than reflecting over types.
type StagedChangePayload interface {
	Kind() StagedChangeKind
}

// AddVariantPayload stages adding a catalog variant to the order
type AddVariantPayload struct {
	AddedLineItemID uuid.UUID `json:"added_line_item_id"`
	VariantID       uuid.UUID `json:"variant_id"`
	Quantity        int       `json:"quantity"`
}

func (AddVariantPayload) Kind() StagedChangeKind { return StagedAddVariant }

// AddCustomItemPayload stages adding a line with no catalog backing
type AddCustomItemPayload struct {
	AddedLineItemID uuid.UUID       `json:"added_line_item_id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
}

func (AddCustomItemPayload) Kind() StagedChangeKind { return StagedAddCustomItem }

// IncrementItemPayload stages raising an existing order line's quantity
type IncrementItemPayload struct {
	LineItemID uuid.UUID `json:"line_item_id"`
	Delta      int       `json:"delta"`
}

func (IncrementItemPayload) Kind() StagedChangeKind { return StagedIncrementItem }

// DecrementItemPayload stages lowering an existing order line's quantity.
// Restock records whether the removed units go back to stock at commit.
type DecrementItemPayload struct {
	LineItemID uuid.UUID `json:"line_item_id"`
	Delta      int       `json:"delta"`
	Restock    bool      `json:"restock"`
}

func (DecrementItemPayload) Kind() StagedChangeKind { return StagedDecrementItem }

// AddItemDiscountPayload stages a discount against an added or existing
// line item. Amount is the resolved money the discount takes off.
type AddItemDiscountPayload struct {
	TargetID  uuid.UUID         `json:"target_id"`
	Title     string            `json:"title"`
	Value     decimal.Decimal   `json:"value"`
	ValueType DiscountValueType `json:"value_type"`
	Amount    decimal.Decimal   `json:"amount"`
}

func (AddItemDiscountPayload) Kind() StagedChangeKind { return StagedAddItemDiscount }

// StagedChange is one pending, not-yet-committed order mutation recorded
// in an OrderEdit. The payload is stored as an explicit discriminator plus
// a serialized variant.
type StagedChange struct {
	ID        uuid.UUID
	EditID    uuid.UUID
	Payload   StagedChangePayload
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStagedChange records a staged change for an edit
func NewStagedChange(editID uuid.UUID, payload StagedChangePayload) *StagedChange {
	now := time.Now()
	return &StagedChange{
		ID:        uuid.New(),
		EditID:    editID,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Kind returns the payload's discriminator
func (c *StagedChange) Kind() StagedChangeKind {
	return c.Payload.Kind()
}

// SetPayload rewrites the payload in place, keeping the record's identity
func (c *StagedChange) SetPayload(payload StagedChangePayload) {
	c.Payload = payload
	c.UpdatedAt = time.Now()
}

// EncodeStagedChangePayload serializes a payload variant for storage
func EncodeStagedChangePayload(payload StagedChangePayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, shared.NewDomainError("STAGED_CHANGE_ENCODE", "Failed to encode staged change payload")
	}
	return data, nil
}

// DecodeStagedChangePayload reconstructs a payload variant from its stored
// discriminator and serialized fields.
func DecodeStagedChangePayload(kind StagedChangeKind, data []byte) (StagedChangePayload, error) {
	var payload StagedChangePayload
	var err error
	switch kind {
	case StagedAddVariant:
		var p AddVariantPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case StagedAddCustomItem:
		var p AddCustomItemPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case StagedIncrementItem:
		var p IncrementItemPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case StagedDecrementItem:
		var p DecrementItemPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case StagedAddItemDiscount:
		var p AddItemDiscountPayload
		err = json.Unmarshal(data, &p)
		payload = p
	default:
		return nil, shared.NewDomainError("STAGED_CHANGE_UNKNOWN_KIND", "Unknown staged change kind")
	}
	if err != nil {
		return nil, shared.NewDomainError("STAGED_CHANGE_DECODE", "Failed to decode staged change payload")
	}
	return payload, nil
}
