package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/ethanbaker/voice-assistant/internal/retention"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	health_module "github.com/ethanbaker/voice-assistant/internal/api/modules/health"
	voice_module "github.com/ethanbaker/voice-assistant/internal/api/modules/voice"
)

// Services are the collaborators the HTTP layer serves. Recorder, Metrics,
// Gatherer and Janitor are optional
type Services struct {
	Pipeline voice_module.Processor
	Store    *artifacts.Store
	Recorder ledger.Recorder
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Janitor  *retention.Janitor
}

// NewEngine builds the gin engine with every route registered
func NewEngine(cfg *utils.Config, svc Services) (*gin.Engine, error) {
	if svc.Store == nil {
		return nil, errors.New("api requires an artifact store")
	}

	port := cfg.GetWithDefault("API_PORT", "8080")

	controller, err := voice_module.NewController(voice_module.Options{
		Pipeline:       svc.Pipeline,
		Store:          svc.Store,
		Recorder:       svc.Recorder,
		PublicBaseURL:  cfg.GetWithDefault("PUBLIC_BASE_URL", "http://localhost:"+port),
		MaxUploadBytes: int64(cfg.GetIntWithDefault("MAX_UPLOAD_BYTES", voice_module.DefaultMaxUploadBytes)),
	})
	if err != nil {
		return nil, err
	}

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)
	engine.Use(requestMetrics(svc.Metrics))

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Committed audio only, addressed by locator. Staging stays private
	for _, ns := range []artifacts.Namespace{artifacts.NamespaceAudioAssistant, artifacts.NamespaceAudioUser} {
		engine.Static("/audio/"+path.Base(string(ns)), svc.Store.Dir(ns))
	}

	if svc.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup, readinessChecks(svc))
	voice_module.RegisterRoutes(baseGroup, cfg, controller)

	return engine, nil
}

// Start builds the engine and serves it until the process exits
func Start(cfg *utils.Config, svc Services) {
	engine, err := NewEngine(cfg, svc)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to build server: ", err)
	}

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + cfg.GetWithDefault("API_PORT", "8080")); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}

func readinessChecks(svc Services) map[string]health_module.Check {
	checks := map[string]health_module.Check{
		"storage": func(context.Context) error {
			return svc.Store.Writable()
		},
		"pipeline": func(context.Context) error {
			if svc.Pipeline == nil {
				return errors.New("pipeline not configured")
			}
			return nil
		},
	}

	if svc.Recorder != nil {
		checks["ledger"] = func(ctx context.Context) error {
			_, err := svc.Recorder.Recent(ctx, 1)
			return err
		}
	}

	if svc.Janitor != nil {
		checks["retention"] = func(context.Context) error {
			if last := svc.Janitor.Last(); last.Error != "" {
				return fmt.Errorf("sweep at %s failed: %s", last.At.Format(time.RFC3339), last.Error)
			}
			return nil
		}
	}

	return checks
}
