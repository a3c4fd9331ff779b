package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/ordercore/backend/internal/application/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/interfaces/http/dto"
)

// OrderEditHandler handles order edit API endpoints
type OrderEditHandler struct {
	BaseHandler
	editService *apporder.OrderEditService
}

// NewOrderEditHandler creates a new OrderEditHandler
func NewOrderEditHandler(editService *apporder.OrderEditService) *OrderEditHandler {
	return &OrderEditHandler{
		editService: editService,
	}
}

// Begin opens a new edit session for an order
func (h *OrderEditHandler) Begin(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	resp, err := h.editService.Begin(c.Request.Context(), storeID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetByID retrieves an edit by id
func (h *OrderEditHandler) GetByID(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	resp, err := h.editService.GetByID(c.Request.Context(), storeID, editID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List retrieves edit sessions for an order
func (h *OrderEditHandler) List(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	}

	items, total, err := h.editService.List(c.Request.Context(), storeID, orderID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// AddVariant stages a catalog variant addition on an open edit
func (h *OrderEditHandler) AddVariant(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	var req apporder.AddVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.AddVariant(c.Request.Context(), storeID, editID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// AddCustomItem stages a free-form line item addition on an open edit
func (h *OrderEditHandler) AddCustomItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	var req apporder.AddCustomItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.AddCustomItem(c.Request.Context(), storeID, editID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateAddedItemQuantity changes the quantity of an edit-added line item
func (h *OrderEditHandler) UpdateAddedItemQuantity(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	itemID, err := parseUUIDParam(c, "itemId")
	if err != nil {
		h.BadRequest(c, "Invalid line item ID format")
		return
	}

	var req apporder.UpdateAddedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.UpdateAddedItemQuantity(c.Request.Context(), storeID, editID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RemoveAddedItem drops an edit-added line item from the session
func (h *OrderEditHandler) RemoveAddedItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	itemID, err := parseUUIDParam(c, "itemId")
	if err != nil {
		h.BadRequest(c, "Invalid line item ID format")
		return
	}

	resp, err := h.editService.RemoveAddedItem(c.Request.Context(), storeID, editID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetLineItemQuantity stages a quantity change on an original order line
func (h *OrderEditHandler) SetLineItemQuantity(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	var req apporder.SetLineItemQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.SetLineItemQuantity(c.Request.Context(), storeID, editID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// AddItemDiscount stages a manual discount on a line item
func (h *OrderEditHandler) AddItemDiscount(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	var req apporder.AddItemDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.AddItemDiscount(c.Request.Context(), storeID, editID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RemoveItemDiscount removes a staged manual discount from a line item
func (h *OrderEditHandler) RemoveItemDiscount(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	targetID, err := parseUUIDParam(c, "itemId")
	if err != nil {
		h.BadRequest(c, "Invalid line item ID format")
		return
	}

	resp, err := h.editService.RemoveItemDiscount(c.Request.Context(), storeID, editID, targetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Commit applies all staged changes to the order and closes the session
func (h *OrderEditHandler) Commit(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store identification required")
		return
	}

	editID, err := parseUUIDParam(c, "editId")
	if err != nil {
		h.BadRequest(c, "Invalid edit ID format")
		return
	}

	var req apporder.CommitOrderEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.editService.Commit(c.Request.Context(), storeID, editID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
