package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mediatrack/internal/auth"
	"mediatrack/internal/entries"
	"mediatrack/internal/metadata"
	"mediatrack/internal/progress"
	synchub "mediatrack/internal/sync"
	"mediatrack/internal/tags"
	"mediatrack/pkg/database"
	"mediatrack/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Log, cfg.Env, os.Stdout)
	slog.SetDefault(logger)

	dbCfg := database.ConfigFrom(cfg.Database)
	db, err := database.Open(dbCfg)
	if err != nil {
		logger.Error("open database", "path", dbCfg.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Auth
	authRepo := auth.NewRepo(db)
	authn := auth.NewAuthenticator(auth.NewTokenService(cfg.Auth), authRepo)
	auth.NewHandler(authRepo, authn, logger).RegisterRoutes(router.Group("/auth"))

	// Live sync (websocket here, TCP below)
	hub := synchub.NewHub(logger)
	router.GET("/ws", synchub.WSHandler(hub, authn, logger))
	tcpSrv := synchub.NewServer(cfg.Server.SyncAddr, hub, authn, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Metadata providers
	opts := metadata.ClientOptions{
		Timeout:           cfg.Providers.Timeout,
		RequestsPerMinute: cfg.Providers.RequestsPerMinute,
		Logger:            logger,
	}
	anilistOpts := opts
	anilistOpts.BaseURL = cfg.Providers.AniList.BaseURL
	tvmazeOpts := opts
	tvmazeOpts.BaseURL = cfg.Providers.TVMaze.BaseURL
	tvmazeOpts.APIKey = cfg.Providers.TVMaze.APIKey
	searcher := metadata.NewSearcher(logger,
		metadata.NewAniList(anilistOpts),
		metadata.NewTVMaze(tvmazeOpts),
	)

	// Protected routes
	protected := router.Group("")
	protected.Use(auth.Middleware(authn))

	metadata.NewHandler(searcher, cfg.Search.DefaultLimit).RegisterRoutes(protected)

	entryRepo := entries.NewRepo(db)
	historyRepo := progress.NewRepo(db)
	entrySvc := entries.NewService(entryRepo, historyRepo, logger)
	importer := entries.NewImporter(entryRepo, searcher)
	entries.NewHandler(entrySvc, importer, hub, logger).RegisterRoutes(protected)
	progress.NewHandler(historyRepo, entryRepo, logger).RegisterRoutes(protected)
	tags.NewHandler(tags.NewRepo(db), logger).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http api listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}
	stop()

	logger.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	hub.Close()

	wg.Wait()
	logger.Info("servers stopped")
}
