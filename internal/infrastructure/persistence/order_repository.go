package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const firstOrderNumber = 1001

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

var orderPreloads = []string{
	"LineItems",
	"ShippingLines",
	"TaxLines",
	"RefundTaxLines",
	"Applications",
	"Allocations",
	"Refunds",
	"Refunds.LineItems",
	"Refunds.Adjustments",
	"Refunds.Transactions",
}

func (r *GormOrderRepository) preloaded(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	for _, assoc := range orderPreloads {
		query = query.Preload(assoc)
	}
	return query
}

// FindByID finds an order by ID within a store
func (r *GormOrderRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.preloaded(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an order by its number within a store
func (r *GormOrderRepository) FindByNumber(ctx context.Context, storeID uuid.UUID, number string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.preloaded(ctx).
		Where("store_id = ? AND number = ?", storeID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of orders for a store with filtering
func (r *GormOrderRepository) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	var total int64
	countQuery := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("store_id = ?", storeID)
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.OrderModel
	query := r.preloaded(ctx).
		Model(&models.OrderModel{}).
		Where("store_id = ?", storeID)
	query = r.applyFilter(query, filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	paginated := shared.NewPaginated(orders, total, page, pageSize)
	return &paginated, nil
}

// Save creates or updates an order with its full owned entity graph
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.saveOrderGraph(tx, model)
	})
}

// SaveWithLock saves with optimistic locking: the write only lands if the
// stored version still matches the aggregate's, and the version is bumped
// on success. A lost race returns ErrConcurrencyConflict.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.saveWithLockAndEvents(ctx, o, nil)
}

// SaveWithLockAndEvents saves with optimistic locking and writes the given
// domain events to the outbox inside the same transaction. An aggregate
// with no stored row yet is inserted instead of version-checked.
func (r *GormOrderRepository) SaveWithLockAndEvents(ctx context.Context, o *order.Order, events []shared.DomainEvent) error {
	return r.saveWithLockAndEvents(ctx, o, events)
}

func (r *GormOrderRepository) saveWithLockAndEvents(ctx context.Context, o *order.Order, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		lookup := tx.Model(&models.OrderModel{}).
			Where("id = ?", o.ID).
			Select("version").
			Scan(&currentVersion)
		if lookup.Error != nil {
			return lookup.Error
		}

		// Scan signals a missing row through RowsAffected, not an error.
		// No stored row means a brand-new aggregate: insert it, with its
		// events, in this same transaction.
		if lookup.RowsAffected == 0 {
			return r.insertAggregate(ctx, tx, o, events)
		}

		if currentVersion != o.Version {
			return shared.ErrConcurrencyConflict
		}

		o.Version++
		o.UpdatedAt = time.Now()
		model := models.OrderModelFromDomain(o)

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(map[string]interface{}{
				"number":            model.Number,
				"currency":          model.Currency,
				"status":            model.Status,
				"tax_exempt":        model.TaxExempt,
				"tax_included":      model.TaxIncluded,
				"country_code":      model.CountryCode,
				"note":              model.Note,
				"subtotal_price":    model.SubtotalPrice,
				"total_discount":    model.TotalDiscount,
				"total_tax":         model.TotalTax,
				"total_shipping":    model.TotalShipping,
				"total_price":       model.TotalPrice,
				"total_received":    model.TotalReceived,
				"total_refunded":    model.TotalRefunded,
				"total_outstanding": model.TotalOutstanding,
				"closed_at":         model.ClosedAt,
				"cancelled_at":      model.CancelledAt,
				"version":           model.Version,
				"updated_at":        model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := r.saveOrderGraph(tx, model); err != nil {
			return err
		}
		return r.appendOutbox(ctx, tx, events)
	})
}

// insertAggregate persists a never-saved order and its owned graph.
func (r *GormOrderRepository) insertAggregate(ctx context.Context, tx *gorm.DB, o *order.Order, events []shared.DomainEvent) error {
	o.UpdatedAt = time.Now()
	model := models.OrderModelFromDomain(o)
	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	if err := r.saveOrderGraph(tx, model); err != nil {
		return err
	}
	return r.appendOutbox(ctx, tx, events)
}

func (r *GormOrderRepository) appendOutbox(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	return r.outboxSaver.SaveEvents(ctx, tx, events...)
}

// saveOrderGraph syncs every owned child table with the aggregate's current
// state: rows absent from the aggregate are deleted, the rest upserted.
func (r *GormOrderRepository) saveOrderGraph(tx *gorm.DB, m *models.OrderModel) error {
	lineItemIDs := make([]uuid.UUID, len(m.LineItems))
	for i := range m.LineItems {
		m.LineItems[i].OrderID = m.ID
		lineItemIDs[i] = m.LineItems[i].ID
	}
	if err := deleteOrphans(tx, &models.LineItemModel{}, "order_id", m.ID, lineItemIDs); err != nil {
		return err
	}
	for i := range m.LineItems {
		if err := tx.Save(&m.LineItems[i]).Error; err != nil {
			return err
		}
	}

	shippingIDs := make([]uuid.UUID, len(m.ShippingLines))
	for i := range m.ShippingLines {
		m.ShippingLines[i].OrderID = m.ID
		shippingIDs[i] = m.ShippingLines[i].ID
	}
	if err := deleteOrphans(tx, &models.ShippingLineModel{}, "order_id", m.ID, shippingIDs); err != nil {
		return err
	}
	for i := range m.ShippingLines {
		if err := tx.Save(&m.ShippingLines[i]).Error; err != nil {
			return err
		}
	}

	taxLineIDs := make([]uuid.UUID, len(m.TaxLines))
	for i := range m.TaxLines {
		m.TaxLines[i].OrderID = m.ID
		taxLineIDs[i] = m.TaxLines[i].ID
	}
	if err := deleteOrphans(tx, &models.TaxLineModel{}, "order_id", m.ID, taxLineIDs); err != nil {
		return err
	}
	for i := range m.TaxLines {
		if err := tx.Save(&m.TaxLines[i]).Error; err != nil {
			return err
		}
	}

	refundTaxLineIDs := make([]uuid.UUID, len(m.RefundTaxLines))
	for i := range m.RefundTaxLines {
		m.RefundTaxLines[i].OrderID = m.ID
		refundTaxLineIDs[i] = m.RefundTaxLines[i].ID
	}
	if err := deleteOrphans(tx, &models.RefundTaxLineModel{}, "order_id", m.ID, refundTaxLineIDs); err != nil {
		return err
	}
	for i := range m.RefundTaxLines {
		if err := tx.Save(&m.RefundTaxLines[i]).Error; err != nil {
			return err
		}
	}

	applicationIDs := make([]uuid.UUID, len(m.Applications))
	for i := range m.Applications {
		m.Applications[i].OrderID = m.ID
		applicationIDs[i] = m.Applications[i].ID
	}
	if err := deleteOrphans(tx, &models.DiscountApplicationModel{}, "order_id", m.ID, applicationIDs); err != nil {
		return err
	}
	for i := range m.Applications {
		if err := tx.Save(&m.Applications[i]).Error; err != nil {
			return err
		}
	}

	allocationIDs := make([]uuid.UUID, len(m.Allocations))
	for i := range m.Allocations {
		m.Allocations[i].OrderID = m.ID
		allocationIDs[i] = m.Allocations[i].ID
	}
	if err := deleteOrphans(tx, &models.DiscountAllocationModel{}, "order_id", m.ID, allocationIDs); err != nil {
		return err
	}
	for i := range m.Allocations {
		if err := tx.Save(&m.Allocations[i]).Error; err != nil {
			return err
		}
	}

	refundIDs := make([]uuid.UUID, len(m.Refunds))
	for i := range m.Refunds {
		m.Refunds[i].OrderID = m.ID
		refundIDs[i] = m.Refunds[i].ID
	}
	if err := deleteOrphans(tx, &models.RefundModel{}, "order_id", m.ID, refundIDs); err != nil {
		return err
	}
	for i := range m.Refunds {
		refund := &m.Refunds[i]
		if err := tx.Omit(clause.Associations).Save(refund).Error; err != nil {
			return err
		}
		for j := range refund.LineItems {
			refund.LineItems[j].RefundID = refund.ID
			if err := tx.Save(&refund.LineItems[j]).Error; err != nil {
				return err
			}
		}
		for j := range refund.Adjustments {
			refund.Adjustments[j].RefundID = refund.ID
			if err := tx.Save(&refund.Adjustments[j]).Error; err != nil {
				return err
			}
		}
		for j := range refund.Transactions {
			refund.Transactions[j].RefundID = refund.ID
			if err := tx.Save(&refund.Transactions[j]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete removes an order and its owned entity graph for a store
func (r *GormOrderRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.OrderModel
		if err := tx.Where("store_id = ? AND id = ?", storeID, id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		var refundIDs []uuid.UUID
		if err := tx.Model(&models.RefundModel{}).
			Where("order_id = ?", id).
			Pluck("id", &refundIDs).Error; err != nil {
			return err
		}
		if len(refundIDs) > 0 {
			if err := tx.Where("refund_id IN ?", refundIDs).Delete(&models.RefundLineItemModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("refund_id IN ?", refundIDs).Delete(&models.OrderAdjustmentModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("refund_id IN ?", refundIDs).Delete(&models.RefundTransactionModel{}).Error; err != nil {
				return err
			}
		}

		for _, child := range []interface{}{
			&models.RefundModel{},
			&models.RefundTaxLineModel{},
			&models.DiscountAllocationModel{},
			&models.DiscountApplicationModel{},
			&models.TaxLineModel{},
			&models.ShippingLineModel{},
			&models.LineItemModel{},
		} {
			if err := tx.Where("order_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.OrderModel{}, "store_id = ? AND id = ?", storeID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GenerateOrderNumber generates the next sequential order number for a
// store. Format: #NNNN starting at #1001.
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context, storeID uuid.UUID) (string, error) {
	var last models.OrderModel
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextNum := int64(firstOrderNumber)
	if err == nil && last.Number != "" {
		if num, parseErr := strconv.ParseInt(strings.TrimPrefix(last.Number, "#"), 10, 64); parseErr == nil {
			nextNum = num + 1
		}
	}

	number := fmt.Sprintf("#%d", nextNum)

	// Verify uniqueness, incrementing past any gaps from concurrent writers
	for i := 0; i < 100; i++ {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.OrderModel{}).
			Where("store_id = ? AND number = ?", storeID, number).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
		nextNum++
		number = fmt.Sprintf("#%d", nextNum)
	}
	return "", fmt.Errorf("unable to generate unique order number for store %s", storeID)
}

// applyFilter applies filter options to the query
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering with whitelist validation to prevent SQL injection
	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "")
		if sortField != "" {
			sortOrder := ValidateSortOrder(filter.OrderDir)
			query = query.Order(sortField + " " + sortOrder)
		} else {
			query = query.Order("created_at DESC")
		}
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("number ILIKE ?", "%"+filter.Search+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "number":
			query = query.Where("number = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}
	return query
}

// deleteOrphans removes child rows belonging to a parent that are absent
// from the aggregate's current id set.
func deleteOrphans(tx *gorm.DB, model interface{}, parentColumn string, parentID uuid.UUID, keepIDs []uuid.UUID) error {
	if len(keepIDs) > 0 {
		return tx.Where(parentColumn+" = ? AND id NOT IN ?", parentID, keepIDs).Delete(model).Error
	}
	return tx.Where(parentColumn+" = ?", parentID).Delete(model).Error
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
