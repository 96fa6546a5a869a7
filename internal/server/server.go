package server

import (
	"log/slog"

	"nfpickle-donations/internal/handler"
	appmiddleware "nfpickle-donations/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	donationHandler *handler.DonationHandler
	webhookHandler  *handler.WebhookHandler
}

func NewServer(
	donationHandler *handler.DonationHandler,
	webhookHandler *handler.WebhookHandler,
	sessionSecret string,
	logger *slog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"err", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		donationHandler: donationHandler,
		webhookHandler:  webhookHandler,
	}

	s.setupRoutes(sessionSecret)
	return s
}

func (s *Server) setupRoutes(sessionSecret string) {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- donations --------
	api.POST("/donations", s.donationHandler.Create)
	api.GET("/donations/config", s.donationHandler.PublicConfig)

	operator := appmiddleware.Session(sessionSecret)
	api.GET("/donations", s.donationHandler.List, operator)
	api.DELETE("/donations", s.donationHandler.Delete, operator)

	// -------- stripe webhooks --------
	api.POST("/stripe/webhook", s.webhookHandler.HandleStripe)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
