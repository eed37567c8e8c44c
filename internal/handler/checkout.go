package handler

import (
	"net/http"

	"fastclick/internal/dto"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct{ svc service.CheckoutService }

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// CheckoutToResponse reports every basket entry; a partial sale is still 200.
func CheckoutToResponse(r *service.CheckoutResult) dto.CheckoutResponse {
	resp := dto.CheckoutResponse{
		CheckoutID:    r.CheckoutID.String(),
		SessionID:     r.SessionID.String(),
		Succeeded:     make([]dto.CheckoutLineResponse, len(r.Succeeded)),
		Failed:        make([]dto.CheckoutFailureResponse, len(r.Failed)),
		ReceiptError:  r.ReceiptError,
		BasketCleared: r.BasketCleared,
	}
	for i, s := range r.Succeeded {
		resp.Succeeded[i] = dto.CheckoutLineResponse{
			ItemID:        s.ItemID.String(),
			TransactionID: s.TransactionID.String(),
			Name:          s.Name,
			Price:         s.Price.StringFixed(2),
		}
	}
	for i, f := range r.Failed {
		resp.Failed[i] = dto.CheckoutFailureResponse{ItemID: f.ItemID.String(), Name: f.Name, Reason: f.Reason}
	}
	if r.Receipt != nil {
		rr := service.ReceiptToResponse(r.Receipt)
		resp.Receipt = &rr
	}
	return resp
}

// Checkout godoc
// @Summary Sell everything in the caller's basket
// @Description Each item commits on its own. Items that cannot be sold are
// @Description listed under failed; the basket is cleared either way.
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body dto.CheckoutRequest false "Buyer email for the receipt"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	cl := claims(c)
	result, err := h.svc.Checkout(c.Request.Context(), cl.UserID, req.BuyerEmail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutToResponse(result))
}
