// Package httpapi exposes the inference engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/ddxengine/internal/inference"
	"github.com/Skufu/ddxengine/internal/runlog"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Inferrer interface {
	Infer(ctx context.Context, c inference.Case) (inference.Result, error)
}

// Deps are the collaborators of the router. Health and Recorder may be nil.
type Deps struct {
	Engine       Inferrer
	Health       HealthChecker
	Recorder     runlog.Recorder
	Logger       *zap.Logger
	InferTimeout time.Duration
}

type inferRequest struct {
	EncounterID string         `json:"encounterId"`
	SymptomIDs  []string       `json:"symptomIds"`
	Meta        map[string]any `json:"meta"`
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Recorder == nil {
		d.Recorder = runlog.Nop{}
	}

	router := gin.New()
	router.Use(
		requestLogger(d.Logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if d.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.Health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	})

	router.POST("/api/infer", inferHandler(d))

	return router
}

func inferHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload inferRequest
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		ctx := c.Request.Context()
		if d.InferTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.InferTimeout)
			defer cancel()
		}

		kase := inference.Case{
			EncounterID:        payload.EncounterID,
			ObservedSymptomIDs: payload.SymptomIDs,
			Meta:               payload.Meta,
		}
		result, err := d.Engine.Infer(ctx, kase)
		if err != nil {
			var dae *inference.DataAccessError
			if errors.As(err, &dae) {
				d.Logger.Error("inference data access failed",
					zap.String("op", dae.Op), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": dae.Kind()})
				return
			}
			d.Logger.Error("inference failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": "internal"})
			return
		}

		rec := runlog.NewRecord(kase, result)
		if err := d.Recorder.RecordRun(context.WithoutCancel(c.Request.Context()), rec); err != nil {
			d.Logger.Warn("record run failed", zap.String("run_id", rec.ID), zap.Error(err))
		}

		c.JSON(http.StatusOK, result)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
