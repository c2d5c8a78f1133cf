package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Registrar mounts a handler's routes on a group.
type Registrar interface {
	Register(router *gin.RouterGroup)
}

type Routes struct {
	Health     Registrar
	Booking    []Registrar
	EventTypes Registrar
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, routes Routes) error {
	router, err := NewRouter(cfg.HTTP, log, routes)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// NewRouter builds the engine. Client addresses come from forwarding headers
// only for requests arriving through cfg.TrustedProxies.
func NewRouter(cfg config.HTTPConfig, log *zap.Logger, routes Routes) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	if routes.Health != nil {
		routes.Health.Register(r.Group(""))
	}

	api := r.Group("/api")
	bookingGroup := api.Group("/booking")
	for _, h := range routes.Booking {
		h.Register(bookingGroup)
	}
	if routes.EventTypes != nil {
		routes.EventTypes.Register(api.Group("/event-types"))
	}

	if cfg.SwaggerFile != "" {
		r.StaticFile("/swagger/booking.swagger.json", cfg.SwaggerFile)
		r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/booking.swagger.json"))))
	}
	return r, nil
}
