package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/asyncx"
	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/metricx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

func main() {
	// 1. Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("🚀 Starting client portal API...")

	// 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	// 3. Dependency container
	container := NewContainer(cfg)

	// 4. Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Client Portal API",
		DisableStartupMessage: true,
		ErrorHandler:          errx.FiberHandler,
		IdleTimeout:           120 * time.Second,
	})

	// 5. Global middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Server.Debug}))
	app.Use(requestid.New(requestid.Config{
		Header:    requestIDHeader,
		Generator: uuid.NewString,
	}))
	app.Use(func(c *fiber.Ctx) error {
		rid := c.GetRespHeader(requestIDHeader)
		c.SetUserContext(kernel.WithRequestID(c.UserContext(), rid))
		return c.Next()
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		ExposeHeaders:    requestIDHeader,
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(metricx.Instrument())

	// 6. Operational endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/metrics", adaptor.HTTPHandler(metricx.Handler()))

	// 7. Routes
	container.IAM.RegisterRoutes(app)
	printRouteSummary()

	// 8. 404
	app.Use(notFoundHandler)

	// 9. Serve until signalled
	startServer(app, container, cfg.Server.Port)
}

const healthProbeTimeout = 2 * time.Second

// healthCheckHandler pings the database and, when configured, Redis.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		health := fiber.Map{"status": "healthy"}

		if err := asyncx.WithTimeout(ctx, healthProbeTimeout, container.DB.PingContext); err != nil {
			health["db"] = "unhealthy"
			health["status"] = "degraded"
			logx.WithContext(ctx).WithError(err).Warn("health: database ping failed")
		} else {
			health["db"] = "healthy"
		}

		if container.Redis != nil {
			err := asyncx.WithTimeout(ctx, healthProbeTimeout, func(ctx context.Context) error {
				return container.Redis.Ping(ctx).Err()
			})
			if err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
				logx.WithContext(ctx).WithError(err).Warn("health: redis ping failed")
			} else {
				health["redis"] = "healthy"
			}
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader(requestIDHeader),
	})
}

func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Auth: /auth/*")
	logx.Info("   ├─ Organizations: /api/v1/organizations/:orgId/members, /billing")
	logx.Info("   ├─ API keys: /api/v1/organizations/:orgId/api-keys")
	logx.Info("   └─ Ops: /health, /metrics")
}

// startServer listens in the background and shuts down on SIGINT or SIGTERM.
func startServer(app *fiber.App, container *Container, port string) {
	go func() {
		logx.Info(strings.Repeat("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Info(strings.Repeat("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	container.Cleanup(ctx)

	logx.Info("✅ Server exited successfully")
}
