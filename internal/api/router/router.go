package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-service/internal/api/handler"
)

// Metrics records HTTP requests and serves the metrics endpoint.
type Metrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
	Handler() http.Handler
}

// Options are the optional router features.
type Options struct {
	Metrics     Metrics
	MetricsPath string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/health", healthHandler(deps))

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(handler.ActorMiddleware(deps.Service))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListUserJobs)
			jobs.POST("", jobHandler.CreateBooking)
			jobs.GET("/history", jobHandler.JobHistory)
			jobs.GET("/potential", jobHandler.PotentialJobs)
			jobs.POST("/accept", jobHandler.AcceptJob)

			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.PUT("/:job_id", jobHandler.UpdateJob)
			jobs.POST("/:job_id/confirm", jobHandler.ConfirmBooking)
			jobs.POST("/:job_id/accept", jobHandler.AcceptJobWithID)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
			jobs.POST("/:job_id/reopen", jobHandler.ReopenJob)
			jobs.POST("/:job_id/end", jobHandler.EndJob)
			jobs.POST("/:job_id/not-carried-out", jobHandler.CustomerNotCall)
		}

		admin := v1.Group("/admin")
		admin.Use(handler.AdminOnly())
		{
			admin.GET("/jobs", jobHandler.ListJobs)
			admin.GET("/jobs/:job_id/translators", jobHandler.PotentialTranslators)
			admin.POST("/jobs/:job_id/resend-push", jobHandler.ResendPush)
			admin.POST("/jobs/:job_id/resend-sms", jobHandler.ResendSMS)
			admin.POST("/distance-feed", jobHandler.DistanceFeed)

			admin.GET("/expiring", jobHandler.ListExpiring)
			admin.POST("/expiring/:job_id/ignore", jobHandler.IgnoreExpiring)
			admin.GET("/expired", jobHandler.ListExpired)
			admin.POST("/expired/:job_id/ignore", jobHandler.IgnoreExpired)
			admin.GET("/alerts", jobHandler.ListAlerts)
			admin.POST("/alerts/:job_id/ignore", jobHandler.IgnoreExpiring)

			admin.GET("/throttles", jobHandler.ListThrottles)
			admin.POST("/throttles/:throttle_id/ignore", jobHandler.IgnoreThrottle)
		}
	}

	return r
}

func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Database.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
					"error":   "database unavailable",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	}
}
