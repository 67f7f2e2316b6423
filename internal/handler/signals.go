package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"macro-compass/internal/domain"
	"macro-compass/internal/repository"
	"macro-compass/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type computeSignalRequest struct {
	Series  map[string][]float64 `json:"series"`
	Current map[string]float64   `json:"current"`
}

// ComputeSignal godoc
// @Summary      Compute a fresh signal for an asset
// @Description  Runs the full pipeline over the asset's stored systems; raw indicator series are optional
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        asset  path  string  true  "Asset (btc, eth, gold, spx, alt)"
// @Param        input  body  computeSignalRequest  false  "Optional raw indicator history"
// @Success      200  {object}  service.SignalReport
// @Failure      400  {object}  map[string]string
// @Router       /api/assets/{asset}/signal [post]
func (h *Handler) ComputeSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.compute-signal")
	defer span.End()

	asset, ok := h.bindAsset(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("asset", string(asset)))

	var req computeSignalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.signalService.ComputeSignal(ctx, asset, req.Series, req.Current)
	switch {
	case errors.Is(err, service.ErrAssetNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrNoSystems):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListSignals godoc
// @Summary      Get signal history for an asset
// @Tags         signals
// @Produce      json
// @Param        asset  path   string  true   "Asset (btc, eth, gold, spx, alt)"
// @Param        limit  query  int     false  "Number of signals (default 20, max 100)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/assets/{asset}/signals [get]
func (h *Handler) ListSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-signals")
	defer span.End()

	asset, ok := h.bindAsset(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("asset", string(asset)))

	limit := 20
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	signals, err := h.signalService.ListSignals(ctx, asset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset, "signals": signals})
}

// LatestSignal godoc
// @Summary      Get the freshest signal for an asset
// @Description  Served from cache when warm; add explain=true for a narrative
// @Tags         signals
// @Produce      json
// @Param        asset    path   string  true   "Asset (btc, eth, gold, spx, alt)"
// @Param        explain  query  bool    false  "Include a prose narrative"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/assets/{asset}/signals/latest [get]
func (h *Handler) LatestSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.latest-signal")
	defer span.End()

	asset, ok := h.bindAsset(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("asset", string(asset)))

	signal, err := h.signalService.LatestSignal(ctx, asset)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signals for " + string(asset)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"signal": signal}
	if strings.EqualFold(c.Query("explain"), "true") && h.advisor != nil {
		narrative, err := h.advisor.Explain(ctx, *signal, nil)
		if err != nil {
			span.RecordError(err)
		} else {
			resp["narrative"] = narrative
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) bindAsset(c *gin.Context) (domain.Asset, bool) {
	asset := domain.Asset(strings.ToLower(c.Param("asset")))
	if !domain.IsSupportedAsset(asset) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "unsupported asset: " + c.Param("asset"),
			"supported_assets": domain.SupportedAssets,
		})
		return "", false
	}
	return asset, true
}
