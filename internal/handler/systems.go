package handler

import (
	"errors"
	"net/http"
	"strconv"

	"macro-compass/internal/domain"
	"macro-compass/internal/repository"
	"macro-compass/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ValidateSystem godoc
// @Summary      Validate an indicator system
// @Description  Runs validation rules without persisting anything
// @Tags         systems
// @Accept       json
// @Produce      json
// @Param        system  body  domain.System  true  "Valuation or trend system"
// @Success      200  {object}  domain.ValidationResult
// @Failure      400  {object}  map[string]string
// @Router       /api/systems/validate [post]
func (h *Handler) ValidateSystem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.validate-system")
	defer span.End()

	system, ok := h.bindSystem(c)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("asset", string(system.Asset)),
		attribute.String("type", string(system.Type)),
	)

	c.JSON(http.StatusOK, h.signalService.ValidateSystem(ctx, system))
}

// CreateSystem godoc
// @Summary      Create or replace an indicator system
// @Description  Validates and persists the system; one system per asset and type
// @Tags         systems
// @Accept       json
// @Produce      json
// @Param        system  body  domain.System  true  "Valuation or trend system"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  domain.ValidationResult
// @Router       /api/systems [post]
func (h *Handler) CreateSystem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-system")
	defer span.End()

	system, ok := h.bindSystem(c)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("asset", string(system.Asset)),
		attribute.String("type", string(system.Type)),
	)

	result, err := h.signalService.SaveSystem(ctx, &system)
	switch {
	case errors.Is(err, service.ErrAssetNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrSystemRejected):
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"system": system, "validation": result})
}

// GetSystem godoc
// @Summary      Get a stored system by id
// @Tags         systems
// @Produce      json
// @Param        id  path  int  true  "System id"
// @Success      200  {object}  domain.System
// @Failure      404  {object}  map[string]string
// @Router       /api/systems/{id} [get]
func (h *Handler) GetSystem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-system")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid system id"})
		return
	}
	span.SetAttributes(attribute.Int64("system_id", id))

	system, err := h.signalService.GetSystem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "system not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, system)
}

func (h *Handler) bindSystem(c *gin.Context) (domain.System, bool) {
	var system domain.System
	if err := c.ShouldBindJSON(&system); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.System{}, false
	}
	if !domain.IsSupportedAsset(system.Asset) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "unsupported asset: " + string(system.Asset),
			"supported_assets": domain.SupportedAssets,
		})
		return domain.System{}, false
	}
	switch system.Type {
	case domain.SystemValuation:
		if system.Valuation == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valuation system requires valuation data"})
			return domain.System{}, false
		}
	case domain.SystemTrend:
		if system.Trend == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "trend system requires trend data"})
			return domain.System{}, false
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be valuation or trend"})
		return domain.System{}, false
	}
	return system, true
}
