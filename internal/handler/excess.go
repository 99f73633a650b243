package handler

import (
	"net/http"

	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/gin-gonic/gin"
)

type ExcessHandler struct {
	svc *service.ExposureService
}

func NewExcessHandler(svc *service.ExposureService) *ExcessHandler {
	return &ExcessHandler{svc: svc}
}

// GetExcess GET /v1/rounds/:id/excess
func (h *ExcessHandler) GetExcess(c *gin.Context) {
	report, err := h.svc.Excess(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
