// Command devserver runs settlers matches over plain websockets, without a
// Nakama server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlers/internal/bot"
	"settlers/internal/config"
	"settlers/internal/logger"
	"settlers/internal/ports/ws"
	"settlers/internal/telemetry"
	"settlers/internal/ticket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.JSONLogs())
	log := logger.Get()

	if err := config.LoadGameConfig(cfg.GameConfig); err != nil {
		log.Warn("using default game config", "path", cfg.GameConfig, "error", err)
	}
	if err := bot.LoadIdentities(cfg.BotIdentities); err != nil {
		log.Warn("bot identities unavailable", "path", cfg.BotIdentities, "error", err)
	}

	secret := cfg.TicketSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("SETTLERS_TICKET_SECRET not set, tickets will not survive a restart")
	}
	tickets, err := ticket.NewIssuer(secret, 0, nil)
	if err != nil {
		logger.Fatal("ticket issuer", "error", err)
	}
	metrics := telemetry.New(prometheus.NewRegistry())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	hub := ws.NewHub(ctx, ws.RoomOptions{
		Config:      *config.GetGameConfig(),
		Tickets:     tickets,
		Metrics:     metrics,
		Logger:      log,
		BotsEnabled: cfg.BotsEnabled,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	ws.NewHandler(hub, cfg.AllowedOrigin, log).Register(r)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	go func() {
		log.Info("server started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	stop()
	hub.Wait()
	log.Info("server exited")
}
