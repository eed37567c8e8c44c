package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"fastclick/internal/apierror"
	"fastclick/internal/dto"
	"fastclick/internal/model"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatementsHandler serves financial statements. Every endpoint takes an
// optional ?session_id=; without it the scope is every session.
type StatementsHandler struct{ svc service.FinancialService }

func NewStatementsHandler(svc service.FinancialService) *StatementsHandler {
	return &StatementsHandler{svc: svc}
}

func SellerStatementToResponse(s model.SellerStatement) dto.SellerStatementResponse {
	return dto.SellerStatementResponse{
		Scope:           s.Scope,
		SellerID:        s.SellerID.String(),
		CommissionPaid:  s.CommissionPaid.StringFixed(2),
		DepositFeesPaid: s.DepositFeesPaid.StringFixed(2),
		GamesRemaining:  s.GamesRemaining,
		GamesSold:       s.GamesSold,
		TotalDue:        s.TotalDue.StringFixed(2),
		TotalEarnings:   s.TotalEarnings.StringFixed(2),
		ComputedAt:      s.ComputedAt,
	}
}

func HouseStatementToResponse(h model.HouseStatement) dto.HouseStatementResponse {
	return dto.HouseStatementResponse{
		Scope:                h.Scope,
		CommissionsCollected: h.CommissionsCollected.StringFixed(2),
		DepositFeesCollected: h.DepositFeesCollected.StringFixed(2),
		GamesRemaining:       h.GamesRemaining,
		GamesSold:            h.GamesSold,
		TotalDue:             h.TotalDue.StringFixed(2),
		TotalEarnings:        h.TotalEarnings.StringFixed(2),
		Cash:                 h.Cash.StringFixed(2),
		NetProfit:            h.NetProfit.StringFixed(2),
		ComputedAt:           h.ComputedAt,
	}
}

func StatementSetToResponse(set *service.StatementSet) dto.StatementSetResponse {
	sellers := make([]dto.SellerStatementResponse, len(set.Sellers))
	for i, s := range set.Sellers {
		sellers[i] = SellerStatementToResponse(s)
	}
	return dto.StatementSetResponse{House: HouseStatementToResponse(set.House), Sellers: sellers}
}

// House godoc
// @Summary House statement
// @Tags statements
// @Produce json
// @Param session_id query string false "Session UUID; omit for all sessions"
// @Success 200 {object} dto.HouseStatementResponse
// @Security BearerAuth
// @Router /v1/statements/house [get]
func (h *StatementsHandler) House(c *gin.Context) {
	sessionID, ok := optionalSessionID(c)
	if !ok {
		return
	}
	set, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HouseStatementToResponse(set.House))
}

// Sellers godoc
// @Summary Every seller statement of a scope
// @Tags statements
// @Produce json
// @Param session_id query string false "Session UUID; omit for all sessions"
// @Success 200 {array} dto.SellerStatementResponse
// @Security BearerAuth
// @Router /v1/statements/sellers [get]
func (h *StatementsHandler) Sellers(c *gin.Context) {
	sessionID, ok := optionalSessionID(c)
	if !ok {
		return
	}
	set, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatementSetToResponse(set).Sellers)
}

// Seller godoc
// @Summary One seller's statement; sellers may only read their own
// @Tags statements
// @Produce json
// @Param id path string true "Seller UUID"
// @Param session_id query string false "Session UUID; omit for all sessions"
// @Success 200 {object} dto.SellerStatementResponse
// @Failure 403 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/statements/sellers/{id} [get]
func (h *StatementsHandler) Seller(c *gin.Context) {
	sellerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	cl := claims(c)
	if cl.Role == model.RoleSeller && cl.UUID() != sellerID {
		c.JSON(http.StatusForbidden, apierror.New("insufficient permissions"))
		return
	}
	sessionID, ok := optionalSessionID(c)
	if !ok {
		return
	}
	st, err := h.svc.SellerStatement(c.Request.Context(), sessionID, sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SellerStatementToResponse(*st))
}

// Recompute godoc
// @Summary Rebuild statements from the transaction log now
// @Tags statements
// @Accept json
// @Produce json
// @Param body body dto.RecomputeRequest false "Scope; empty for all sessions"
// @Success 200 {object} dto.StatementSetResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/statements/recompute [post]
func (h *StatementsHandler) Recompute(c *gin.Context) {
	var req dto.RecomputeRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	var sessionID *uuid.UUID
	if req.SessionID != "" {
		id := uuid.MustParse(req.SessionID)
		sessionID = &id
	}
	set, err := h.svc.Recompute(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatementSetToResponse(set))
}

// Export godoc
// @Summary Statements as an XLSX workbook
// @Tags statements
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param session_id query string false "Session UUID; omit for all sessions"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /v1/statements/export [get]
func (h *StatementsHandler) Export(c *gin.Context) {
	sessionID, ok := optionalSessionID(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(c.Request.Context(), sessionID, &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("statements-%s-%s.xlsx", model.ScopeFor(sessionID), time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Report godoc
// @Summary Statements as a plain-text report
// @Tags statements
// @Produce plain
// @Param session_id query string false "Session UUID; omit for all sessions"
// @Success 200 {string} string
// @Security BearerAuth
// @Router /v1/statements/report [get]
func (h *StatementsHandler) Report(c *gin.Context) {
	sessionID, ok := optionalSessionID(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.WriteReport(c.Request.Context(), sessionID, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}
