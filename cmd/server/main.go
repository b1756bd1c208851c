package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/internal/middleware"
	"github.com/dfryer1193/blogapi/internal/rest"
	"github.com/dfryer1193/blogapi/shared/config"
	"github.com/dfryer1193/blogapi/shared/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())

	// Initialize dependencies
	database := cfg.Database()
	if err := database.Connect(); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	images, err := persistence.NewFileImageStore(cfg.Images)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image store")
	}

	blogRepo := persistence.NewBlogRepository(database.DB())
	blogService := application.NewBlogService(blogRepo, images, application.WithMaxPageSize(cfg.MaxPageSize))
	renderer := application.NewMarkdownRenderer(images.PublicPrefix())

	corsHandler, err := middleware.CORS(cfg.CORSOrigins)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid CORS configuration")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.Images.MaxBytes
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics(!cfg.IsProduction())))
	r.Use(corsHandler)
	r.Use(middleware.WriteRateLimit(cfg.WriteRateLimit, cfg.WriteRateBurst))

	rest.NewApi(r, rest.NewHandler(blogService, images, renderer, database, rest.Config{
		UploadDir:      images.Root(),
		UploadPrefix:   images.PublicPrefix(),
		MaxUploadBytes: cfg.Images.MaxBytes,
		ExposeErrors:   !cfg.IsProduction(),
	}))

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Str("driver", cfg.DBDriver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
