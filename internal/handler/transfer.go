package handler

import (
	"net/http"

	"github.com/GoPolymarket/lottogate/internal/middleware"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	ledger *service.TransferLedger
}

func NewTransferHandler(ledger *service.TransferLedger) *TransferHandler {
	return &TransferHandler{ledger: ledger}
}

type revertRequest struct {
	BatchIDs []string `json:"batch_ids" binding:"required,min=1"`
}

type returnRequest struct {
	WagerIDs []string `json:"wager_ids" binding:"required,min=1"`
}

type reclaimRequest struct {
	LineIDs []string `json:"line_ids" binding:"required,min=1"`
}

// CreateBatch POST /v1/rounds/:id/transfers
func (h *TransferHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	req.RoundID = c.Param("id")
	req.ActorID = middleware.DealerID(c)

	res, err := h.ledger.CreateBatch(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if res.BatchID == "" {
		// 所选项目已不再超额
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListBatches GET /v1/rounds/:id/transfers
func (h *TransferHandler) ListBatches(c *gin.Context) {
	batches, err := h.ledger.ListBatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if batches == nil {
		batches = []service.Batch{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// Revert POST /v1/transfers/revert
func (h *TransferHandler) Revert(c *gin.Context) {
	var req revertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	n, err := h.ledger.RevertBatch(c.Request.Context(), middleware.DealerID(c), req.BatchIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted_lines": n})
}

// Return POST /v1/transfers/return, called by the receiving dealer.
func (h *TransferHandler) Return(c *gin.Context) {
	dealerID := middleware.DealerID(c)
	if dealerID == "" {
		_ = c.Error(apperrors.New(apperrors.ErrUnauthorized, "missing dealer identity", nil))
		return
	}
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	res, err := h.ledger.ReturnWagers(c.Request.Context(), dealerID, req.WagerIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reclaim POST /v1/transfers/reclaim
func (h *TransferHandler) Reclaim(c *gin.Context) {
	var req reclaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	n, err := h.ledger.ReclaimLines(c.Request.Context(), middleware.DealerID(c), req.LineIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reclaimed_lines": n})
}
