// Package models holds the GORM persistence models backing the domain
// aggregates. Domain entities stay free of ORM tags; each model here owns
// the table mapping and converts to and from its domain counterpart via
// explicit mapper functions used by the repositories.
//
// Layout:
//   - base.go: embedded model bases (BaseModel, AggregateModel, StoreAggregateModel)
//   - order.go: the order aggregate (Order, LineItem, ShippingLine, TaxLine, Refund)
//   - order_edit.go: staged edits (OrderEdit, StagedChange, Added* shadows)
//   - providers.go: provider sources (Variant, Location, TaxRate, FulfillmentLine)
//   - outbox.go: transactional outbox rows
package models
