package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/api"
	"github.com/shoplens/shop-crawler/internal/config"
	"github.com/shoplens/shop-crawler/internal/crawler"
	"github.com/shoplens/shop-crawler/internal/db"
	"github.com/shoplens/shop-crawler/internal/jobstore"
	"github.com/shoplens/shop-crawler/internal/logger"
	"github.com/shoplens/shop-crawler/internal/middleware"
	"github.com/shoplens/shop-crawler/internal/scheduler"
	"github.com/shoplens/shop-crawler/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("initializing database")
	dbConn, err := db.Connect(nil)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	store, err := jobstore.New(cfg.JobsDir)
	if err != nil {
		log.Fatal("failed to initialize job store", zap.Error(err))
	}

	crawlerService := crawler.NewService(dbConn, store, &crawler.Config{
		Headless:    cfg.Headless,
		SettleDelay: cfg.SettleDelay,
	}, log)

	// Initialize Gin router
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Add middleware
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "shop-crawler",
		})
	})

	// Authentication endpoint
	r.POST("/auth/login", api.LoginHandler(dbConn))

	// Public catalog
	r.GET("/sites", api.SitesHandler())

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.JWTRequired())
	{
		authorized.POST("/crawls", api.StartCrawlHandler(crawlerService))
		authorized.POST("/crawls/all", api.StartAllHandler(crawlerService))
		authorized.GET("/progress", api.ProgressHandler(crawlerService))
		authorized.GET("/jobs", api.ListJobsHandler(dbConn))
		authorized.GET("/jobs/:id/status", api.JobStatusHandler(dbConn, crawlerService))
		authorized.GET("/jobs/:id/stats", api.JobStatsHandler(dbConn, store))
		authorized.POST("/jobs/:id/stop", api.StopJobHandler(dbConn, crawlerService))
		authorized.GET("/jobs/:id/download", api.DownloadHandler(dbConn, store))
	}

	// Optional scheduled full runs, attributed to the admin user
	var sched *scheduler.Scheduler
	if cfg.CronSpec != "" {
		sched, err = scheduler.New(cfg.CronSpec, func() (string, error) {
			admin, err := service.GetUserByUsername(dbConn, "admin")
			if err != nil {
				return "", err
			}
			return crawlerService.StartFullRun(admin.ID)
		}, log)
		if err != nil {
			log.Fatal("failed to set up scheduler", zap.Error(err))
		}
		sched.Start()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	if sched != nil {
		sched.Stop()
	}

	// Shutdown server gracefully
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}

	// Stop active runs gracefully
	crawlerService.Shutdown()

	log.Info("server exited")
}
