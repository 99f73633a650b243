package handler

import "github.com/gin-gonic/gin"

// CreditCheckRoute only reads the ledger, so it stays open in read-only mode.
const CreditCheckRoute = "POST /v1/dealers/:id/credit/check"

type Handlers struct {
	Excess   *ExcessHandler
	Transfer *TransferHandler
	Credit   *CreditHandler
}

// RegisterRoutes mounts the ledger API on v1. admin guards operator-only routes.
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers, admin gin.HandlerFunc) {
	rounds := v1.Group("/rounds/:id")
	{
		rounds.GET("/excess", h.Excess.GetExcess)
		rounds.GET("/transfers", h.Transfer.ListBatches)
		rounds.POST("/transfers", h.Transfer.CreateBatch)
	}

	transfers := v1.Group("/transfers")
	{
		transfers.POST("/revert", h.Transfer.Revert)
		transfers.POST("/return", h.Transfer.Return)
		transfers.POST("/reclaim", h.Transfer.Reclaim)
	}

	dealers := v1.Group("/dealers/:id/credit")
	{
		dealers.GET("", h.Credit.GetCredit)
		dealers.POST("/check", h.Credit.Check)
		dealers.POST("/recompute", admin, h.Credit.Recompute)
	}
}
