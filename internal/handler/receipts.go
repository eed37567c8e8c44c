package handler

import (
	"net/http"
	"strings"

	"fastclick/internal/apierror"
	"fastclick/internal/model"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
)

type ReceiptsHandler struct{ svc service.ReceiptService }

func NewReceiptsHandler(svc service.ReceiptService) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc}
}

func isStaff(role string) bool {
	return role == model.RoleAdmin || role == model.RoleCashier
}

// Get godoc
// @Summary One receipt; non-staff callers only see their own
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt UUID"
// @Success 200 {object} dto.ReceiptResponse
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/receipts/{id} [get]
func (h *ReceiptsHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	cl := claims(c)
	if !isStaff(cl.Role) && !strings.EqualFold(resp.Email, cl.Email) {
		c.JSON(http.StatusNotFound, apierror.New(service.ErrReceiptNotFound.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PDF godoc
// @Summary Receipt as PDF
// @Tags receipts
// @Produce application/pdf
// @Param id path string true "Receipt UUID"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/receipts/{id}/pdf [get]
func (h *ReceiptsHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cl := claims(c)
	if !isStaff(cl.Role) {
		resp, err := h.svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !strings.EqualFold(resp.Email, cl.Email) {
			c.JSON(http.StatusNotFound, apierror.New(service.ErrReceiptNotFound.Error()))
			return
		}
	}
	data, err := h.svc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="receipt-`+id.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ListMine godoc
// @Summary Receipts issued to the caller's email
// @Tags receipts
// @Produce json
// @Success 200 {array} dto.ReceiptResponse
// @Security BearerAuth
// @Router /v1/receipts [get]
func (h *ReceiptsHandler) ListMine(c *gin.Context) {
	resp, err := h.svc.ListMine(c.Request.Context(), claims(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
