package server

import (
	"github.com/bbalwant/smart-tracking-system/internal/config"
	"github.com/bbalwant/smart-tracking-system/internal/db"
	"github.com/bbalwant/smart-tracking-system/internal/location"
	"github.com/bbalwant/smart-tracking-system/internal/packages"
	"github.com/bbalwant/smart-tracking-system/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Querier
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, querier db.Querier, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     querier,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	pkgSvc := packages.NewService(s.DB)
	locSvc := location.NewService(s.DB, pkgSvc, s.Stream, s.Cfg.AverageSpeedKmh)

	packages.RegisterRoutes(s.App.Group("/packages"), pkgSvc)

	trackingGroup := s.App.Group("/tracking")
	location.RegisterRoutes(trackingGroup, locSvc)
	stream.RegisterRoutes(trackingGroup, s.Stream)
}
