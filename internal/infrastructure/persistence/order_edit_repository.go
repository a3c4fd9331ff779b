package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderEditRepository implements order.EditRepository using GORM
type GormOrderEditRepository struct {
	db *gorm.DB
}

// NewGormOrderEditRepository creates a new GormOrderEditRepository
func NewGormOrderEditRepository(db *gorm.DB) *GormOrderEditRepository {
	return &GormOrderEditRepository{db: db}
}

var orderEditPreloads = []string{
	"StagedChanges",
	"AddedLineItems",
	"AddedTaxLines",
	"AddedApplications",
	"AddedAllocations",
}

func (r *GormOrderEditRepository) preloaded(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	for _, assoc := range orderEditPreloads {
		query = query.Preload(assoc)
	}
	return query
}

// FindByID finds an order edit by ID within a store
func (r *GormOrderEditRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*order.OrderEdit, error) {
	var model models.OrderEditModel
	if err := r.preloaded(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindOpenByOrderID finds the open edit for an order, if one exists
func (r *GormOrderEditRepository) FindOpenByOrderID(ctx context.Context, storeID, orderID uuid.UUID) (*order.OrderEdit, error) {
	var model models.OrderEditModel
	if err := r.preloaded(ctx).
		Where("store_id = ? AND order_id = ? AND status = ?", storeID, orderID, order.EditStatusOpen).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// List returns a page of edits for an order with filtering
func (r *GormOrderEditRepository) List(ctx context.Context, storeID, orderID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.OrderEdit], error) {
	var total int64
	countQuery := r.db.WithContext(ctx).
		Model(&models.OrderEditModel{}).
		Where("store_id = ? AND order_id = ?", storeID, orderID)
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.OrderEditModel
	query := r.preloaded(ctx).
		Model(&models.OrderEditModel{}).
		Where("store_id = ? AND order_id = ?", storeID, orderID)
	query = r.applyFilter(query, filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	edits := make([]*order.OrderEdit, len(rows))
	for i := range rows {
		edit, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		edits[i] = edit
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	paginated := shared.NewPaginated(edits, total, page, pageSize)
	return &paginated, nil
}

// Save creates or updates an order edit with its staged change ledger
func (r *GormOrderEditRepository) Save(ctx context.Context, edit *order.OrderEdit) error {
	model, err := models.OrderEditModelFromDomain(edit)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.saveEditGraph(tx, model)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderEditRepository) SaveWithLock(ctx context.Context, edit *order.OrderEdit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		lookup := tx.Model(&models.OrderEditModel{}).
			Where("id = ?", edit.ID).
			Select("version").
			Scan(&currentVersion)
		if lookup.Error != nil {
			return lookup.Error
		}
		// Scan signals a missing row through RowsAffected. Edits are always
		// created via Save first, so no row means the edit is gone.
		if lookup.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if currentVersion != edit.Version {
			return shared.ErrConcurrencyConflict
		}

		edit.Version++
		edit.UpdatedAt = time.Now()
		model, err := models.OrderEditModelFromDomain(edit)
		if err != nil {
			return err
		}

		result := tx.Model(&models.OrderEditModel{}).
			Where("id = ? AND version = ?", edit.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":                      model.Status,
				"subtotal_line_item_quantity": model.SubtotalLineItemQuantity,
				"subtotal_price":              model.SubtotalPrice,
				"cart_discount_amount":        model.CartDiscountAmount,
				"total_tax":                   model.TotalTax,
				"total_price":                 model.TotalPrice,
				"total_outstanding":           model.TotalOutstanding,
				"committed_at":                model.CommittedAt,
				"version":                     model.Version,
				"updated_at":                  model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.saveEditGraph(tx, model)
	})
}

// saveEditGraph syncs every edit-owned child table with the aggregate's
// current state: rows absent from the aggregate are deleted, the rest
// upserted.
func (r *GormOrderEditRepository) saveEditGraph(tx *gorm.DB, m *models.OrderEditModel) error {
	changeIDs := make([]uuid.UUID, len(m.StagedChanges))
	for i := range m.StagedChanges {
		m.StagedChanges[i].EditID = m.ID
		changeIDs[i] = m.StagedChanges[i].ID
	}
	if err := deleteOrphans(tx, &models.StagedChangeModel{}, "edit_id", m.ID, changeIDs); err != nil {
		return err
	}
	for i := range m.StagedChanges {
		if err := tx.Save(&m.StagedChanges[i]).Error; err != nil {
			return err
		}
	}

	itemIDs := make([]uuid.UUID, len(m.AddedLineItems))
	for i := range m.AddedLineItems {
		m.AddedLineItems[i].EditID = m.ID
		itemIDs[i] = m.AddedLineItems[i].ID
	}
	if err := deleteOrphans(tx, &models.AddedLineItemModel{}, "edit_id", m.ID, itemIDs); err != nil {
		return err
	}
	for i := range m.AddedLineItems {
		if err := tx.Save(&m.AddedLineItems[i]).Error; err != nil {
			return err
		}
	}

	taxIDs := make([]uuid.UUID, len(m.AddedTaxLines))
	for i := range m.AddedTaxLines {
		m.AddedTaxLines[i].EditID = m.ID
		taxIDs[i] = m.AddedTaxLines[i].ID
	}
	if err := deleteOrphans(tx, &models.AddedTaxLineModel{}, "edit_id", m.ID, taxIDs); err != nil {
		return err
	}
	for i := range m.AddedTaxLines {
		if err := tx.Save(&m.AddedTaxLines[i]).Error; err != nil {
			return err
		}
	}

	appIDs := make([]uuid.UUID, len(m.AddedApplications))
	for i := range m.AddedApplications {
		m.AddedApplications[i].EditID = m.ID
		appIDs[i] = m.AddedApplications[i].ID
	}
	if err := deleteOrphans(tx, &models.AddedDiscountApplicationModel{}, "edit_id", m.ID, appIDs); err != nil {
		return err
	}
	for i := range m.AddedApplications {
		if err := tx.Save(&m.AddedApplications[i]).Error; err != nil {
			return err
		}
	}

	allocIDs := make([]uuid.UUID, len(m.AddedAllocations))
	for i := range m.AddedAllocations {
		m.AddedAllocations[i].EditID = m.ID
		allocIDs[i] = m.AddedAllocations[i].ID
	}
	if err := deleteOrphans(tx, &models.AddedDiscountAllocationModel{}, "edit_id", m.ID, allocIDs); err != nil {
		return err
	}
	for i := range m.AddedAllocations {
		if err := tx.Save(&m.AddedAllocations[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an order edit and its staged records for a store
func (r *GormOrderEditRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.OrderEditModel
		if err := tx.Where("store_id = ? AND id = ?", storeID, id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		for _, child := range []interface{}{
			&models.StagedChangeModel{},
			&models.AddedLineItemModel{},
			&models.AddedTaxLineModel{},
			&models.AddedDiscountApplicationModel{},
			&models.AddedDiscountAllocationModel{},
		} {
			if err := tx.Where("edit_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.OrderEditModel{}, "store_id = ? AND id = ?", storeID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter options to the query
func (r *GormOrderEditRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, OrderEditSortFields, "")
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
func (r *GormOrderEditRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
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

// Ensure GormOrderEditRepository implements order.EditRepository
var _ order.EditRepository = (*GormOrderEditRepository)(nil)
