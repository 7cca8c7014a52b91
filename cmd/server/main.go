package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/db"
	"parkwatch-service/internal/detection"
	"parkwatch-service/internal/emitter"
	httphandler "parkwatch-service/internal/http"
	"parkwatch-service/internal/metrics"
	"parkwatch-service/internal/pipeline"
	"parkwatch-service/internal/repository"
	"parkwatch-service/internal/service"
	"parkwatch-service/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("db.dsn is required")
	}

	conn, err := db.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	repo := repository.NewAlertRepository(conn)
	alertService := service.NewAlertService(repo, log)

	hub := ws.NewHub(log)
	go hub.Run()

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One monitor per configured feed, all appending through the in-process
	// service so the store keeps sole ownership of alert ids.
	em := emitter.NewAlertEmitter(cfg.Detection, alertService, log)
	for feed := range cfg.Videos.Feeds {
		source := detection.NewMockSource(time.Now().UnixNano())
		monitor := pipeline.NewMonitor(feed, cfg.Detection, source, em, m, log)
		go monitor.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httphandler.RequestID())
	router.Use(httphandler.Logging(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := httphandler.NewHandler(alertService, cfg, hub, m, log)
	handler.Register(router, httphandler.Auth(cfg.Server.JWTSecret))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
