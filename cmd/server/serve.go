package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"delivery_tracker/internal/config"
	"delivery_tracker/internal/database"
	"delivery_tracker/internal/export"
	"delivery_tracker/internal/handlers"
	"delivery_tracker/internal/migrations"
	"delivery_tracker/internal/redis"
	"delivery_tracker/internal/repository"
	"delivery_tracker/internal/services"
	"delivery_tracker/internal/storage"
	"delivery_tracker/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides SERVER_PORT)")
	serveCmd.Flags().Bool("migrate", true, "apply schema migrations before serving")
	_ = v.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.LogLevel)

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseLog, logger)
	if err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := migrations.RunMigrations(db, logger); err != nil {
			return err
		}
		if err := migrations.EnsureAdmin(cmd.Context(), db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
			return err
		}
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	blobs, err := storage.NewMediaStore(cfg.MediaRoot)
	if err != nil {
		return err
	}

	notifier := services.NewNoopNotifier()
	if cfg.WhatsApp.Enabled() {
		wa := whatsapp.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.Username, cfg.WhatsApp.Password, cfg.WhatsApp.Path, cfg.WhatsApp.CountryCode)
		notifier = services.NewWhatsAppNotifier(wa, cfg.PublicBaseURL, logger)
	} else {
		logger.Info("whatsapp not configured, client notifications disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	clientRepo := repository.NewClientRepository(db)
	productRepo := repository.NewProductRepository(db)
	bagRepo := repository.NewBagRepository(db)
	sheetRepo := repository.NewRouteSheetRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	// Services
	dispatch := services.NewDispatchService(services.DispatchDeps{
		Sheets:     sheetRepo,
		Deliveries: deliveryRepo,
		Drivers:    driverRepo,
		Vehicles:   vehicleRepo,
		Clients:    clientRepo,
		Products:   productRepo,
		Bags:       bagRepo,
		Blobs:      blobs,
	}, cfg.PublicBaseURL, logger, time.Now)
	workflow := services.NewWorkflowService(sheetRepo, deliveryRepo, blobs, notifier, logger, time.Now)
	position := services.NewPositionService(sheetRepo, time.Now)
	reports := services.NewReportService(sheetRepo, deliveryRepo, cfg.Location, time.Now)
	catalog := services.NewCatalogService(userRepo, driverRepo, vehicleRepo, clientRepo, productRepo, bagRepo)
	auth := services.NewAuthService(userRepo, driverRepo, redisClient, cfg.SessionTTL(), logger, time.Now)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(handlers.RequestLogger(logger), gin.Recovery())
	router.MaxMultipartMemory = 16 << 20

	secure := strings.HasPrefix(cfg.PublicBaseURL, "https://")
	handlers.Register(router, handlers.Handlers{
		Auth:         auth,
		Login:        handlers.NewAuthHandler(auth, cfg.SessionTTL(), secure),
		Driver:       handlers.NewDriverHandler(dispatch, workflow),
		Token:        handlers.NewTokenHandler(dispatch, workflow, position, blobs),
		Staff:        handlers.NewStaffHandler(reports, cfg.Branding, export.Options{Currency: cfg.Currency, Location: cfg.Location}, time.Now),
		Admin:        handlers.NewAdminHandler(catalog, dispatch),
		Notification: handlers.NewNotificationHandler(dispatch, notifier),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
