package handler

import (
	"fmt"
	"net/http"

	"github.com/GoPolymarket/lottogate/internal/middleware"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	ledger *service.CreditLedger
}

func NewCreditHandler(ledger *service.CreditLedger) *CreditHandler {
	return &CreditHandler{ledger: ledger}
}

// 经销商只能查看自己的额度
func sameDealer(c *gin.Context) bool {
	actor := middleware.DealerID(c)
	if actor != "" && actor != c.Param("id") {
		_ = c.Error(apperrors.New(apperrors.ErrForbidden, "credit belongs to another dealer", nil))
		return false
	}
	return true
}

// GetCredit GET /v1/dealers/:id/credit
func (h *CreditHandler) GetCredit(c *gin.Context) {
	if !sameDealer(c) {
		return
	}
	view, err := h.ledger.GetCredit(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Check POST /v1/dealers/:id/credit/check
// A rejected check answers 402 so the wager intake can refuse the wager.
func (h *CreditHandler) Check(c *gin.Context) {
	if !sameDealer(c) {
		return
	}
	var req service.CreditCheckInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	req.DealerID = c.Param("id")

	check, err := h.ledger.CheckCreditForWager(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !check.Allowed {
		msg := check.Reason
		if check.Shortfall.IsPositive() {
			msg = fmt.Sprintf("%s: short by %s", check.Reason, check.Shortfall.StringFixed(2))
		}
		_ = c.Error(apperrors.NewInsufficientCredit(msg))
		return
	}
	c.JSON(http.StatusOK, check)
}

// Recompute POST /v1/dealers/:id/credit/recompute (admin)
func (h *CreditHandler) Recompute(c *gin.Context) {
	pending, err := h.ledger.RecomputePendingDeduction(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealer_id": c.Param("id"), "pending_deduction": pending})
}
