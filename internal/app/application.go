package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"studyhall/internal/api"
	"studyhall/internal/auth"
	"studyhall/internal/config"
	"studyhall/internal/engine"
	"studyhall/internal/registry"
	"studyhall/internal/store"
	"studyhall/internal/websocket"
	"studyhall/pkg/database"
)

// Application wires every component in dependency order:
// store -> registry -> engine -> API/websocket -> HTTP server.
type Application struct {
	config     *config.Config
	store      *store.Manager
	registry   *registry.Registry
	engine     *engine.Engine
	httpServer *http.Server
}

// NewApplication builds a ready-to-start application.
func NewApplication(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.DatabasePath = cfg.DatabasePath

	storeManager, err := store.NewManager(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	reg := registry.NewRegistry()

	// An empty secret runs the engine open: payload identity is trusted.
	var tokens engine.TokenValidator
	if cfg.JWTSecret != "" {
		tokens = auth.NewValidator(cfg.JWTSecret)
	}

	broadcastEngine := engine.NewEngine(reg, storeManager, storeManager, tokens)

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	apiServer := api.NewServer(storeManager, storeManager, storeManager, reg)
	apiServer.Register(router)

	wsHandler := websocket.NewHandler(broadcastEngine)
	router.GET("/ws", wsHandler.Handle)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      storeManager,
		registry:   reg,
		engine:     broadcastEngine,
		httpServer: httpServer,
	}, nil
}

// Start launches the engine, then the HTTP server, and verifies the server
// came up before reporting success.
func (app *Application) Start(ctx context.Context) error {
	log.Info().Str("addr", app.httpServer.Addr).Msg("starting studyhall")

	if err := app.engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		_ = app.engine.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Info().Msg("studyhall started")
		return nil
	case <-ctx.Done():
		_ = app.engine.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP, engine, store.
func (app *Application) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down studyhall")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := app.engine.Stop(); err != nil {
		log.Error().Err(err).Msg("engine shutdown error")
	}
	if err := app.store.Close(); err != nil {
		log.Error().Err(err).Msg("store shutdown error")
	}

	log.Info().Msg("studyhall shutdown complete")
	return nil
}

// Addr returns the configured listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
