package handler

import (
	"net/http"

	"fastclick/internal/dto"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List godoc
// @Summary Search inventory
// @Tags inventory
// @Produce json
// @Param name query string false "Name contains"
// @Param status query string false "pending | available | soldout | returned"
// @Param seller_id query string false "Seller UUID"
// @Param sort query string false "priceLowToHigh | priceHighToLow | sellerName"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.InventoryListResponse
// @Security BearerAuth
// @Router /v1/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var filter dto.InventoryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary One inventory item
// @Tags inventory
// @Produce json
// @Param id path string true "Item UUID"
// @Success 200 {object} dto.InventoryItemResponse
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deposit godoc
// @Summary Take in a consigned game; creates the seller on first deposit
// @Tags inventory
// @Accept json
// @Produce json
// @Param body body dto.DepositRequest true "Deposit"
// @Success 201 {object} dto.DepositResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/inventory/deposit [post]
func (h *InventoryHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Deposit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// MarkAvailable godoc
// @Summary Release a pending item for sale
// @Tags inventory
// @Produce json
// @Param id path string true "Item UUID"
// @Success 200 {object} dto.InventoryItemResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/inventory/{id}/available [patch]
func (h *InventoryHandler) MarkAvailable(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.MarkAvailable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Return godoc
// @Summary Hand an unsold item back to its seller
// @Tags inventory
// @Produce json
// @Param id path string true "Item UUID"
// @Success 200 {object} dto.InventoryItemResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/inventory/{id}/return [patch]
func (h *InventoryHandler) Return(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Return(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MyItems godoc
// @Summary The calling seller's items
// @Tags inventory
// @Produce json
// @Success 200 {array} dto.InventoryItemResponse
// @Security BearerAuth
// @Router /v1/sellers/me/items [get]
func (h *InventoryHandler) MyItems(c *gin.Context) {
	resp, err := h.svc.ListBySeller(c.Request.Context(), claims(c).UUID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
