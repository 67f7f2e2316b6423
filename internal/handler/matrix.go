package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMatrix godoc
// @Summary      Get the allocation matrix
// @Description  The fixed table mapping valuation tier and trend state to an allocation percentage
// @Tags         matrix
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/matrix [get]
func (h *Handler) GetMatrix(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-matrix")
	defer span.End()

	rows, cols, table := h.signalService.Matrix()
	c.JSON(http.StatusOK, gin.H{
		"valuation_tiers": rows,
		"trend_tiers":     cols,
		"allocations":     table,
	})
}

// GetPortfolio godoc
// @Summary      Get the portfolio view
// @Description  Latest allocation for every tracked asset, summed without normalizing
// @Tags         matrix
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/portfolio [get]
func (h *Handler) GetPortfolio(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio")
	defer span.End()

	allocations, total, err := h.signalService.PortfolioAllocations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": allocations, "total_pct": total})
}
