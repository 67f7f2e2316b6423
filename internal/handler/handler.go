package handler

import (
	"macro-compass/internal/advisor"
	"macro-compass/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer        trace.Tracer
	signalService *service.SignalService
	advisor       *advisor.AdvisorService
}

func New(tracer trace.Tracer, signalService *service.SignalService, advisorService *advisor.AdvisorService) *Handler {
	return &Handler{
		tracer:        tracer,
		signalService: signalService,
		advisor:       advisorService,
	}
}

// RegisterRoutes wires every endpoint. Middleware (auth) applies to the
// /api group only; /health stays open for load balancers.
func (h *Handler) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api", middleware...)
	api.POST("/systems/validate", h.ValidateSystem)
	api.POST("/systems", h.CreateSystem)
	api.GET("/systems/:id", h.GetSystem)
	api.POST("/assets/:asset/signal", h.ComputeSignal)
	api.GET("/assets/:asset/signals", h.ListSignals)
	api.GET("/assets/:asset/signals/latest", h.LatestSignal)
	api.GET("/matrix", h.GetMatrix)
	api.GET("/portfolio", h.GetPortfolio)
}
