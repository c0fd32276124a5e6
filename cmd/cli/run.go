package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/config"
	"flowdesk/internal/handlers"
	"flowdesk/internal/metrics"
	"flowdesk/internal/middleware"
	"flowdesk/internal/models"
	"flowdesk/internal/observability"
	"flowdesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the flowdesk server",
	Long:  `Run the flowdesk server`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}

	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		logrus.Warnf("init tracing: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Inquiry{},
		&models.InquiryItem{},
		&models.Quote{},
		&models.ProductionOrder{},
		&models.StatusHistory{},
		&models.Notification{},
		&models.Deadline{},
		&models.WebhookDelivery{},
		&models.EmailOutbox{},
		&models.AutomationRule{},
		&models.AutomationRun{},
	); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	logger := logrus.StandardLogger()

	hub := services.NewWebSocketHub()
	go hub.Run()

	rules := services.NewRuleService(db, logger)
	assignments := services.NewAssignmentService(db, logger)
	notifications := services.NewNotificationService(db, logger, hub)
	emails := services.NewEmailService(db, logger)
	statuses := services.NewStatusService(db, logger)
	deadlines := services.NewDeadlineService(db, logger)

	var breaker *services.CircuitBreaker
	if cfg.Automation.CircuitBreaker.Enabled {
		breaker = services.NewCircuitBreakerWithConfig(&services.CircuitBreakerConfig{
			MaxFailures:     cfg.Automation.CircuitBreaker.MaxFailures,
			ResetTimeout:    cfg.Automation.CircuitBreaker.ResetTimeout,
			HalfOpenMaxReqs: cfg.Automation.CircuitBreaker.HalfOpenMaxReqs,
		})
	}
	webhooks := services.NewWebhookService(db, logger, breaker)

	registry := automation.DefaultRegistry(automation.Gateways{
		Rules:         rules,
		Assignments:   assignments,
		Notifications: notifications,
		Email:         emails,
		Status:        statuses,
		Webhooks:      webhooks,
		Deadlines:     deadlines,
	}, cfg.Automation.WebhookTimeout)
	registry.SetEscalationRole(cfg.Automation.EscalationRole)
	dispatcher := automation.NewDispatcher(registry, logger)
	orchestrator := automation.NewOrchestrator(rules, dispatcher, logger, cfg.Automation.DispatchConcurrency)

	inquiries := services.NewInquiryService(db, logger, orchestrator, rules)
	scheduler := services.NewSchedulerService(db, logger, deadlines, assignments, orchestrator, rules, cfg.Automation.WorkloadLimit)

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.Run(schedCtx, cfg.Automation.SchedulerInterval)

	if cfg.Server.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, hub, routeDeps{
		automation: handlers.NewAutomationHandler(rules, webhooks),
		inquiry:    handlers.NewInquiryHandler(inquiries, notifications, statuses, cfg.Automation.ApprovalThreshold),
		event:      handlers.NewEventHandler(orchestrator, rules),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

type routeDeps struct {
	automation *handlers.AutomationHandler
	inquiry    *handlers.InquiryHandler
	event      *handlers.EventHandler
}

func setupRouter(cfg *config.Config, hub *services.WebSocketHub, deps routeDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, func(c *gin.Context) {
			total, byPrefix := metrics.RateLimitSnapshot()
			c.JSON(http.StatusOK, gin.H{
				"automation": metrics.Snapshot(),
				"rate_limit": gin.H{"dropped": total, "by_prefix": byPrefix},
			})
		})
	}

	api := router.Group("/api/v1")
	{
		api.GET("/ws", hub.HandleWebSocket)

		handlers.RegisterAutomationRoutes(api, deps.automation)
		handlers.RegisterInquiryRoutes(api, deps.inquiry)
		handlers.RegisterEventRoutes(api, deps.event)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
