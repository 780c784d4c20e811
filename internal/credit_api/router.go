package credit_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/farm-credit-ledger/internal/credit_api/handler"
	"github.com/farm-credit-ledger/internal/credit_api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a backing store the API cannot serve without
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency probed by /ready
type ReadinessCheck struct {
	Name   string
	Target Pinger
}

const readinessTimeout = 2 * time.Second

func readiness(checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		failed := make(map[string]string)
		for _, check := range checks {
			if err := check.Target.Ping(ctx); err != nil {
				failed[check.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	creditHandler *handler.CreditHandler,
	defaultHandler *handler.DefaultHandler,
	auditHandler *handler.AuditHandler,
	checks []ReadinessCheck,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	{
		farmers := v1.Group("/farmers/:farmerId")
		{
			farmers.GET("/eligibility", creditHandler.Eligibility)
			farmers.GET("/credit", creditHandler.GetProfile)
			farmers.GET("/credit/transactions", creditHandler.ListTransactions)

			// Every balance or status change names its actor
			mutations := farmers.Group("/credit", middleware.RequireActor())
			{
				mutations.POST("/provision", creditHandler.Provision)
				mutations.POST("/grant", creditHandler.Grant)
				mutations.POST("/use", creditHandler.Use)
				mutations.POST("/repay", creditHandler.Repay)
				mutations.PUT("/limit", creditHandler.AdjustLimit)
				mutations.POST("/freeze", creditHandler.Freeze)
				mutations.POST("/suspend", creditHandler.Suspend)
				mutations.POST("/settle", creditHandler.Settle)
				mutations.POST("/reconcile", creditHandler.Reconcile)
			}
		}

		defaults := v1.Group("/defaults")
		{
			defaults.GET("", defaultHandler.ListActive)
			defaults.GET("/:id", defaultHandler.Get)

			recoveryOps := defaults.Group("", middleware.RequireActor())
			{
				recoveryOps.POST("/scan", defaultHandler.Scan)
				recoveryOps.POST("/:id/actions", defaultHandler.CreateAction)
				recoveryOps.POST("/:id/actions/:actionId/complete", defaultHandler.CompleteAction)
				recoveryOps.POST("/:id/contacts", defaultHandler.AddContact)
				recoveryOps.POST("/:id/resolve", defaultHandler.Resolve)
			}
		}

		v1.GET("/audit", auditHandler.List)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/ready", readiness(checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
