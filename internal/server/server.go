package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"eatoff/internal/config"
	"eatoff/internal/handler"
	"eatoff/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Marketplace *handler.MarketplaceHandler
	Cart        *handler.CartHandler
	Image       *handler.ImageHandler
	AdminEvents *handler.AdminCartEventHandler
}

// New はルートとミドルウェアを登録した echo を返す。
func New(cfg config.Config, userRepo repository.UserRepository, h Handlers, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			logger.Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{cfg.FEURL},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Auth != nil {
		h.Auth.RegisterRoutes(e, cfg, userRepo)
	}
	if h.Marketplace != nil {
		h.Marketplace.RegisterRoutes(e)
	}
	if h.Cart != nil {
		h.Cart.RegisterRoutes(e, cfg, userRepo)
	}
	if h.Image != nil {
		h.Image.RegisterRoutes(e)
	}
	if h.AdminEvents != nil {
		h.AdminEvents.RegisterRoutes(e, cfg, userRepo)
	}

	return e
}

// Start は ctx が終わるまで待ち、終わったら graceful shutdown する。
func Start(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
