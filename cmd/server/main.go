package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventos-backend/internal/auth"
	"eventos-backend/internal/broker"
	"eventos-backend/internal/cache"
	"eventos-backend/internal/config"
	"eventos-backend/internal/database"
	"eventos-backend/internal/db"
	h "eventos-backend/internal/http"
	"eventos-backend/internal/handlers"
	"eventos-backend/internal/health"
	"eventos-backend/internal/middleware"
	"eventos-backend/internal/notify"
	"eventos-backend/internal/realtime"
	"eventos-backend/internal/repositories"
	"eventos-backend/internal/services"
	"eventos-backend/internal/storage"
	"eventos-backend/internal/timeutil"
	"eventos-backend/internal/whatsapp"
	"eventos-backend/migrations"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Load()
	timeutil.SetZone(cfg.Server.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("[DB] %v", err)
	}
	defer pool.Close()
	logger.Printf("[DB] Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	if err := database.NewMigrator(pool, migrations.FS, logger).RunMigrations(ctx); err != nil {
		logger.Fatalf("[Migrations] %v", err)
	}

	// Redis is optional: catalog reads fall through to the database, the
	// payment guard falls back to the database check, login limiting is skipped
	if err := cache.Init(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Printf("[Redis] Unavailable, running without cache: %v", err)
	} else {
		logger.Printf("[Redis] Connected")
	}
	defer cache.Close()

	// Repositories
	st := repositories.NewStore(pool)
	userRepo := repositories.NewUserRepository(pool)
	categoryRepo := repositories.NewCategoryRepository(pool)
	productRepo := repositories.NewProductRepository(pool)
	movementRepo := repositories.NewStockMovementRepository(pool)
	planRepo := repositories.NewPlanRepository(pool)
	eventRepo := repositories.NewEventRepository(pool)
	clientRepo := repositories.NewClientRepository(pool)
	salonRepo := repositories.NewSalonRepository(pool)
	messageRepo := repositories.NewWhatsAppMessageRepository(pool)

	// Notification sinks
	fanout := notify.NewFanout(logger)

	dispatcher := whatsapp.NewDispatcher(whatsapp.NewProvider(whatsapp.Config{
		Provider:      cfg.WhatsApp.Provider,
		APIKey:        cfg.WhatsApp.APIKey,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
		Language:      cfg.WhatsApp.Language,
	}), messageRepo, cfg.WhatsApp.RetryMaxAttempts, logger)
	if dispatcher.Enabled() {
		fanout.Add("whatsapp", dispatcher)
		interval := time.Duration(cfg.WhatsApp.RetryIntervalMinutes) * time.Minute
		go dispatcher.RunRetryLoop(ctx, interval)
		logger.Printf("[WhatsApp] Provider %s enabled, retry every %s", cfg.WhatsApp.Provider, interval)
	} else {
		logger.Printf("[WhatsApp] Not configured, messages disabled")
	}

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	fanout.Add("tablero", hub)

	if cfg.RabbitMQ.URL != "" {
		publisher, err := broker.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Printf("[RabbitMQ] Disabled: %v", err)
		} else {
			defer publisher.Close()
			fanout.Add("rabbitmq", publisher)
		}
	}

	// Sinks run on their own worker so a slow provider never holds a request
	notices := notify.NewQueue(fanout, 256, 10*time.Second, logger)
	go notices.Run()

	var archive services.Archiver
	if cfg.StorageEnabled() {
		a, err := storage.NewArchive(ctx, cfg, logger)
		if err != nil {
			logger.Printf("[Storage] Disabled: %v", err)
		} else {
			archive = a
			logger.Printf("[Storage] Archiving documents to bucket %s", cfg.Storage.Bucket)
		}
	}

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	attempts := cache.Attempts{}

	stock := services.NewStockLedger(logger)
	eventService := services.NewEventService(st, stock, services.NewPlanComposer(), services.NewPaymentLedger(), notices, logger)
	paymentService := services.NewPaymentService(eventService, cache.PaymentGuard{}, logger)

	var gateway services.OrderGateway
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		gateway = services.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	}
	razorpayService := services.NewRazorpayService(paymentService, gateway,
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Currency, logger)

	catalogService := services.NewCatalogService(categoryRepo, productRepo, movementRepo, logger)
	planService := services.NewPlanService(planRepo, productRepo, eventRepo, logger)
	userService := services.NewUserService(userRepo, jwtManager, attempts, logger)
	totpService := services.NewTOTPService(userRepo, jwtManager, attempts, logger)
	reportService := services.NewReportService(eventService, paymentService, archive,
		cfg.Business.Nombre, cfg.Business.VerifyBaseURL, logger)

	if err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Printf("[Usuarios] No se creó el administrador inicial: %v", err)
	}

	// HTTP
	checker := health.NewHealthChecker(pool, cache.IsHealthy)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := h.NewRouter(h.Handlers{
		Auth:     handlers.NewAuthHandler(userService, totpService, logger),
		Users:    handlers.NewUserHandler(userService, logger),
		Events:   handlers.NewEventHandler(eventService, logger),
		Payments: handlers.NewPaymentHandler(paymentService, razorpayService, logger),
		Catalog:  handlers.NewCatalogHandler(catalogService, logger),
		Plans:    handlers.NewPlanHandler(planService, logger),
		Clients:  handlers.NewClientHandler(services.NewClientService(clientRepo), services.NewSalonService(salonRepo), logger),
		Reports:  handlers.NewReportHandler(reportService, logger),
		WhatsApp: handlers.NewWhatsAppHandler(dispatcher, logger),
		Health:   handlers.NewHealthHandler(checker),
		Board:    hub.ServeWS,
	}, authMiddleware, middleware.RequestLogger(logger), middleware.MetricsMiddleware)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(logger)(corsMiddleware(router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	if err := notices.Close(shutdownCtx); err != nil {
		logger.Printf("[Avisos] Pending notices dropped: %v", err)
	}
}
