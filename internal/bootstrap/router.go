package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/chroniclekeep/chronicle-backend/internal/api/http"
	"github.com/chroniclekeep/chronicle-backend/internal/api/http/middleware"
	"github.com/chroniclekeep/chronicle-backend/internal/auth"
	"github.com/chroniclekeep/chronicle-backend/internal/generator"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	intelhttp "github.com/chroniclekeep/chronicle-backend/internal/intelligence/http"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/registry"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/repository"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/service"
	"github.com/chroniclekeep/chronicle-backend/internal/users"
	wspg "github.com/chroniclekeep/chronicle-backend/internal/worldstore/postgres"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Generator      generator.Generator
	AllowedOrigins []string

	UndoWindow       int // hours
	BatchConcurrency int
	TierDefaults     map[domain.Tier]int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(dep.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = dep.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-User-Id", "X-User-Email", "X-User-Name", "X-Request-Id")
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	userRepo := users.NewRepo(dep.DB)
	world := wspg.NewStore(dep.DB)
	suggestionRepo := repository.NewSuggestionRepository(dep.DB)
	cooldownRepo := repository.NewCooldownRepository(dep.Redis)
	tierRepo := repository.NewTierRepository(dep.DB, dep.TierDefaults)

	reg := registry.Default(world)
	lifecycle := service.NewLifecycleService(suggestionRepo, reg, hours(dep.UndoWindow))
	batch := service.NewBatchService(lifecycle, suggestionRepo, dep.BatchConcurrency)
	cooldowns := service.NewCooldownService(cooldownRepo, tierRepo)
	generation := service.NewGenerationService(dep.Generator, suggestionRepo, cooldowns)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())
	api.Use(auth.WithUser(userRepo))

	intelHandler := intelhttp.NewHandler(suggestionRepo, lifecycle, batch, cooldowns, generation, userRepo)
	intelHandler.Register(api)

	return r
}

func hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}
