// api/routes/router.go
package routes

import (
	"fmt"
	"net/http"
	"time"

	"coursely/internal/allocation"
	"coursely/internal/catalog"
	"coursely/internal/eventbus"
	"coursely/internal/registration"
	"coursely/internal/scoring"
	"coursely/internal/shared/config"
	"coursely/internal/shared/database"
	"coursely/internal/stream"
	"coursely/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	log     *logger.Logger
	service *registration.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, log *logger.Logger) *Router {
	return &Router{
		config: cfg,
		db:     db,
		log:    log,
	}
}

// Service exposes the registration service once SetupRoutes has run.
func (r *Router) Service() *registration.Service {
	return r.service
}

// SetupRoutes wires the registration domain and configures all routes.
func (r *Router) SetupRoutes(engine *gin.Engine) error {
	service, err := r.buildService()
	if err != nil {
		return err
	}
	r.service = service

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupRegistrationRoutes(api)
		r.setupStreamRoutes(api)
	}

	return nil
}

// buildService assembles the scoring, allocation and registration layers
// from config. Repositories are in-memory when the database is disabled.
func (r *Router) buildService() (*registration.Service, error) {
	weights, err := r.scoringWeights()
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewEngine(weights, r.config.Scoring.DecayLambda)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}

	strategy, err := allocation.ParseStrategy(r.config.Allocation.Strategy)
	if err != nil {
		return nil, fmt.Errorf("invalid allocation configuration: %w", err)
	}
	alloc := allocation.NewEngine(strategy)

	var catalogRepo catalog.Repository
	var regRepo registration.Repository
	if r.db != nil && r.db.PostgreSQL != nil {
		catalogRepo = catalog.NewRepository(r.db.GetPostgreSQL())
		regRepo = registration.NewGormRepository(r.db.GetPostgreSQL())
	} else {
		catalogRepo = catalog.NewMemoryRepository()
		regRepo = registration.NewMemoryRepository()
	}

	bus := eventbus.NewBus(r.config.EventBufferSize)

	service := registration.NewService(catalogRepo, regRepo, scorer, alloc, bus, r.log, registration.Options{
		DefaultRows:        r.config.Seats.DefaultRows,
		DefaultSeatsPerRow: r.config.Seats.DefaultSeatsPerRow,
	})
	return service, nil
}

// scoringWeights resolves the preset name when set, otherwise uses the
// explicit weight values from config.
func (r *Router) scoringWeights() (scoring.Weights, error) {
	sc := r.config.Scoring
	if sc.Preset != "" {
		return scoring.PresetWeights(sc.Preset)
	}
	return scoring.Weights{
		GPA:      sc.GPAWeight,
		Interest: sc.InterestWeight,
		Time:     sc.TimeWeight,
		Year:     sc.YearWeight,
		Prereq:   sc.PrereqWeight,
	}, nil
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.db != nil {
			if err := r.db.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "coursely-backend",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "coursely-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupRegistrationRoutes configures seat registration routes
func (r *Router) setupRegistrationRoutes(rg *gin.RouterGroup) {
	controller := registration.NewController(r.service)
	registration.SetupRegistrationRoutes(rg, controller)
}

// setupStreamRoutes configures SSE streaming routes
func (r *Router) setupStreamRoutes(rg *gin.RouterGroup) {
	hub := stream.NewHub(r.service.Bus(), r.log)
	controller := stream.NewController(hub)
	stream.SetupStreamRoutes(rg, controller)
}
