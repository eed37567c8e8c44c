package handler

import (
	"net/http"

	"fastclick/internal/dto"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BasketHandler serves the caller's own basket; the owner key is the token's
// user id.
type BasketHandler struct{ svc service.BasketService }

func NewBasketHandler(svc service.BasketService) *BasketHandler { return &BasketHandler{svc: svc} }

func basketToResponse(b *service.Basket) dto.BasketResponse {
	entries := b.Entries()
	items := make([]dto.BasketEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.BasketEntryResponse{
			ItemID:   e.ItemID.String(),
			Name:     e.Name,
			Price:    e.Price.StringFixed(2),
			Quantity: e.Quantity,
			AddedAt:  e.AddedAt,
		}
	}
	return dto.BasketResponse{Items: items, Count: b.Len(), Total: b.Total().StringFixed(2)}
}

// Get godoc
// @Summary The caller's basket
// @Tags basket
// @Produce json
// @Success 200 {object} dto.BasketResponse
// @Security BearerAuth
// @Router /v1/basket [get]
func (h *BasketHandler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), claims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basketToResponse(b))
}

// Add godoc
// @Summary Put an available item in the basket
// @Tags basket
// @Accept json
// @Produce json
// @Param body body dto.AddBasketItemRequest true "Item"
// @Success 200 {object} dto.BasketResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/basket/items [post]
func (h *BasketHandler) Add(c *gin.Context) {
	var req dto.AddBasketItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	b, err := h.svc.Add(c.Request.Context(), claims(c).UserID, uuid.MustParse(req.ItemID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basketToResponse(b))
}

// Remove godoc
// @Summary Take an item out of the basket
// @Tags basket
// @Produce json
// @Param id path string true "Item UUID"
// @Success 200 {object} dto.BasketResponse
// @Security BearerAuth
// @Router /v1/basket/items/{id} [delete]
func (h *BasketHandler) Remove(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Remove(c.Request.Context(), claims(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basketToResponse(b))
}

// Clear godoc
// @Summary Empty the basket
// @Tags basket
// @Success 204
// @Security BearerAuth
// @Router /v1/basket [delete]
func (h *BasketHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), claims(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
