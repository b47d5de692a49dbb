// File: fixly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixly/config"
	"fixly/cron"
	"fixly/database"
	bookingRepo "fixly/database/repository/booking"
	jobRepo "fixly/database/repository/jobrequest"
	providerRepo "fixly/database/repository/provider"
	serviceRepo "fixly/database/repository/service"
	userRepo "fixly/database/repository/user"
	"fixly/handlers"
	"fixly/routes"
	"fixly/services/dispatch"
	"fixly/services/matching"
	"fixly/services/notification"
	"fixly/services/tasks"
	"fixly/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// Repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	offers := jobRepo.NewMongoJobRequestRepo()
	providers := providerRepo.NewMongoProviderRepo()
	services := serviceRepo.NewMongoServiceRepo()
	users := userRepo.NewMongoUserRepo()

	// Push notifications degrade to log output without Firebase credentials.
	var notifier notification.Gateway
	if config.AppConfig.FirebaseCredentialsFile != "" {
		utils.FirebaseInit()
		fcm, err := notification.NewFCMGateway(users, providers)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize notification gateway: %v", err)
		}
		notifier = fcm
	} else {
		logger.Warn("no firebase credentials configured, notifications go to the log")
		notifier = &notification.LogGateway{Logger: logger}
	}

	// Durable task client for escalation checks and scheduled dispatch.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	scheduler := &tasks.AsynqScheduler{Client: asynqClient}

	cfg := dispatch.Config{
		DefaultSearchRadiusKm:   config.AppConfig.DefaultSearchRadiusKm,
		MaxSearchRadiusKm:       config.AppConfig.MaxSearchRadiusKm,
		MaxProvidersPerDispatch: config.AppConfig.MaxProvidersPerDispatch,
		ResponseWindow:          time.Duration(config.AppConfig.ResponseWindowMin) * time.Minute,
		MaxRetries:              config.AppConfig.MaxDispatchRetries,
		RetryRadiusFactor:       config.AppConfig.RetryRadiusFactor,
		DeclineGrace:            time.Duration(config.AppConfig.DeclineGraceSec) * time.Second,
		ScheduledLeadTime:       time.Duration(config.AppConfig.ScheduledLeadTimeMin) * time.Minute,
	}
	clock := utils.SystemClock()

	presence := &matching.RedisPresence{Client: utils.GetCacheClient()}
	matcher := &matching.Engine{
		Providers:   providers,
		Services:    services,
		Presence:    presence,
		AvgSpeedKmh: config.AppConfig.AvgSpeedKmh,
		Logger:      logger,
	}

	dispatcher := &dispatch.DefaultDispatcher{
		Bookings:  bookings,
		Offers:    offers,
		Notifier:  notifier,
		Scheduler: scheduler,
		Clock:     clock,
		Logger:    logger,
	}
	resolver := &dispatch.DefaultResolver{
		Bookings:  bookings,
		Offers:    offers,
		Notifier:  notifier,
		Scheduler: scheduler,
		Clock:     clock,
		Logger:    logger,
		Grace:     cfg.DeclineGrace,
	}
	escalator := &dispatch.DefaultEscalator{
		Bookings:   bookings,
		Offers:     offers,
		Matcher:    matcher,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Clock:      clock,
		Logger:     logger,
		Cfg:        cfg,
	}
	bookingService := &dispatch.DefaultBookingService{
		Bookings:   bookings,
		Offers:     offers,
		Providers:  providers,
		Services:   services,
		Matcher:    matcher,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Scheduler:  scheduler,
		Cache:      utils.GetCacheClient(),
		Clock:      clock,
		Logger:     logger,
		Cfg:        cfg,
	}

	// Background worker for durable dispatch tasks.
	workerSrv, workerMux := cron.NewDispatchWorker(escalator, bookingService)
	workerErr := cron.RunDispatchWorker(workerSrv, workerMux)

	// HTTP layer.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	hb := &handlers.HandlerBundle{
		Bookings: bookingService,
		Resolver: resolver,
		Matcher:  matcher,
		Presence: presence,
		Offers:   offers,
	}
	routes.RegisterRoutes(router, hb)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-workerErr:
		logger.Error("dispatch worker failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	workerSrv.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
