// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis) and composes the
// bounded-context containers.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if c.Config.OAuth.StateManager.Type == "redis" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("  ✅ Redis connected")
	}

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")
	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:    c.DB,
		Redis: c.Redis,
		Cfg:   c.Config,
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup(ctx context.Context) {
	logx.Info("🧹 Cleaning up resources...")

	if c.IAM != nil {
		if err := c.IAM.Shutdown(ctx); err != nil {
			logx.Errorf("Error draining best-effort tasks: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
