package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkchat/config"
	"linkchat/data/database"
	"linkchat/logger"
	"linkchat/middleware/security"
	chathandler "linkchat/module/chat"
	chatservice "linkchat/module/chat/service"
	friendhandler "linkchat/module/friend"
	friendservice "linkchat/module/friend/service"
	userhandler "linkchat/module/user"
	userservice "linkchat/module/user/service"
	"linkchat/service/chat"
	"linkchat/service/storage"
	jwtopts "linkchat/tools/security"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("connect postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Errorf("ensure schema: %v", err)
		os.Exit(1)
	}

	presence, err := storage.NewPresenceStore(ctx, storage.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.PresenceTTL,
	})
	if err != nil {
		logger.Errorf("connect redis: %v", err)
		os.Exit(1)
	}
	defer presence.Close()

	users := userservice.NewStore(pool)
	friends := friendservice.NewStore(pool)
	messages := chatservice.NewStore(pool)

	opts := jwtopts.DefaultOptions([]byte(cfg.JWTSecret))
	opts.TTL = cfg.JWTTTL
	auth := userservice.NewAuthenticator(opts, users)

	server := chat.NewServer(chat.Deps{
		Auth:          auth,
		Users:         users,
		Friends:       friends,
		Messages:      messages,
		Mirror:        presence,
		WriteDeadline: cfg.WriteDeadline,
		PresenceRenew: cfg.PresenceTTL / 2,
	})
	defer server.Close()

	authMW := security.Middleware(auth)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/ws", server.HandleWS)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	userhandler.NewHandler(users, auth, server.Registry(), presence).Register(engine, authMW)
	friendhandler.NewHandler(friends, users, server.Events()).Register(engine, authMW)
	chathandler.NewHandler(messages).Register(engine, authMW)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		logger.Infof("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
