package router

import (
	"github.com/gin-gonic/gin"

	"github.com/agrocredit/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers of the API
type Handlers struct {
	System     *handler.SystemHandler
	Inspection *handler.InspectionHandler
	Subject    *handler.SubjectHandler
	Financing  *handler.FinancingHandler
	Payment    *handler.PaymentHandler
	KPI        *handler.KPIHandler
	Farmer     *handler.FarmerHandler
	Outbox     *handler.OutboxHandler
}

// APIConfig holds the middleware the API routes are wrapped in
type APIConfig struct {
	// Auth runs before every /api route; required
	Auth gin.HandlerFunc
	// After runs once the caller is known (span enrichment, rate limits)
	After []gin.HandlerFunc
	// ExportLimit guards the ledger export; optional
	ExportLimit gin.HandlerFunc
	// ImportLimit throttles farmer bulk imports; optional
	ImportLimit gin.HandlerFunc
}

// RegisterAPI mounts the health checks at the root and every domain under /api/v1
func RegisterAPI(engine *gin.Engine, h Handlers, cfg APIConfig) *Router {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	mw := append([]gin.HandlerFunc{cfg.Auth}, cfg.After...)
	r := NewRouter(engine, WithMiddleware(mw...))

	r.Register(NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo))

	r.Register(NewDomainGroup("inspections", "/inspections").
		POST("", h.Inspection.Create).
		GET("", h.Inspection.List).
		GET("/:id", h.Inspection.Get).
		POST("/:id/schedule", h.Inspection.Schedule).
		POST("/:id/start", h.Inspection.Start).
		POST("/:id/approve", h.Inspection.Approve).
		POST("/:id/reject", h.Inspection.Reject))

	r.Register(NewDomainGroup("subjects", "/subjects").
		PUT("", h.Subject.Upsert).
		GET("/:id", h.Subject.Get).
		GET("/:id/eligible-parcels", h.Subject.EligibleParcels))

	r.Register(NewDomainGroup("financings", "/financings").
		POST("", h.Financing.Create).
		GET("", h.Financing.List).
		POST("/reconcile-overdue", h.Financing.ReconcileOverdue).
		GET("/:id", h.Financing.Get).
		PATCH("/:id/status", h.Financing.UpdateStatus))

	r.Register(NewDomainGroup("payments", "/payments").
		POST("", h.Payment.Register).
		GET("", h.Payment.Ledger).
		GET("/export", withOptional(cfg.ExportLimit, h.Payment.Export)...))

	r.Register(NewDomainGroup("kpi", "/kpi").
		GET("/totals", h.KPI.Totals).
		GET("/self-check", h.KPI.SelfCheck))

	r.Register(NewDomainGroup("farmers", "/farmers").
		POST("", h.Farmer.Create).
		GET("", h.Farmer.List).
		POST("/import", withOptional(cfg.ImportLimit, h.Farmer.Import)...).
		GET("/:id", h.Farmer.Get).
		PUT("/:id", h.Farmer.Update).
		POST("/:id/parcels", h.Farmer.CreateParcel).
		GET("/:id/parcels", h.Farmer.ListParcels))

	r.Register(NewDomainGroup("outbox", "/outbox").
		GET("/stats", h.Outbox.Stats).
		GET("/dead", h.Outbox.DeadLetters).
		POST("/dead/retry-all", h.Outbox.RequeueAll).
		GET("/:id", h.Outbox.Entry).
		POST("/:id/retry", h.Outbox.Requeue))

	r.Setup()
	return r
}

func withOptional(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{mw, h}
}
