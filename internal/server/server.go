// Package server exposes the inspection pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/eftview/internal/eft"
	"github.com/danmuck/eftview/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const DefaultMaxUploadBytes int64 = 50 << 20

type Config struct {
	Addr string
	// CorsOrigins lists allowed browser origins. Nil allows the local dev
	// frontend; an empty non-nil list disables cross-origin access.
	CorsOrigins    []string
	MaxUploadBytes int64
	// APIToken, when set, is required as a bearer token on uploads.
	APIToken string
	// TLSCertFile and TLSKeyFile switch the listener to HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

type Server struct {
	cfg      Config
	svc      *eft.Service
	router   *gin.Engine
	appeared time.Time
}

func New(cfg Config, svc *eft.Service) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	if origins := normalizeOrigins(cfg.CorsOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.RequestIDHeader},
			ExposeHeaders: []string{observability.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{cfg: cfg, svc: svc, router: r, appeared: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on the configured address until ctx is done, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Bool("tls", useTLS).Msg("server.Serve listening")
		if useTLS {
			errCh <- srv.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info().Msg("server.Serve shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func normalizeOrigins(origins []string) []string {
	if origins == nil {
		return []string{"http://localhost:5173"}
	}
	return origins
}
