package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/projecthub-dev/projecthub/internal/auth"
	"github.com/projecthub-dev/projecthub/internal/cache"
	"github.com/projecthub-dev/projecthub/internal/config"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
	"github.com/projecthub-dev/projecthub/internal/http/handlers"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/observability"
	"github.com/projecthub-dev/projecthub/internal/policy"
	"github.com/projecthub-dev/projecthub/internal/repo/postgres"
)

type Deps struct {
	Cfg   config.Config
	Log   *slog.Logger
	Pool  *pgxpool.Pool
	Prom  *observability.Prom
	Redis *redis.Client // optional; enables the distributed rate limiter
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.Cfg.MaxBodyBytes))
	r.Use(otelgin.Middleware("projecthub-api"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	projectsRepo := postgres.NewProjectsRepo(deps.Pool, deps.Prom)
	membershipsRepo := postgres.NewMembershipsRepo(deps.Pool, deps.Prom)
	documentsRepo := postgres.NewDocumentsRepo(deps.Pool, deps.Prom)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Prom)
	refreshRepo := postgres.NewRefreshTokensRepo(deps.Pool)

	engine := policy.NewEngine(usersRepo, projectsRepo, membershipsRepo, documentsRepo)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, deps.Cfg.AccessTTL, deps.Cfg.RefreshTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	// one limiter for anonymous auth traffic, one for the API proper
	authLimit, apiLimit := rateLimiters(deps)

	listCache := cache.New(5 * time.Second)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, refreshRepo, deps.Cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	projectsHandler := handlers.NewProjectsHandler(projectsRepo, usersRepo, engine, listCache)
	assignmentsHandler := handlers.NewAssignmentsHandler(engine, membershipsRepo, jobsRepo)
	documentsHandler := handlers.NewDocumentsHandler(documentsRepo, engine)
	dashboardHandler := handlers.NewDashboardHandler(engine)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// auth endpoints: anonymous, JSON-only, limited by IP
	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RequireJSON())
	authGroup.Use(authLimit(middlewares.KeyByIP))
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// everything else requires a valid access token
	api := r.Group("/")
	api.Use(authMw.RequireAuth())
	api.Use(middlewares.RequireJSON())
	api.Use(apiLimit(middlewares.KeyByUserOrIP))
	{
		// account management is admin-only
		users := api.Group("/users")
		users.Use(authMw.RequireRole(role.Admin))
		{
			users.POST("", usersHandler.CreateUser)
			users.GET("", usersHandler.ListUsers)
			users.GET("/:id", usersHandler.GetUser)
			users.PATCH("/:id/role", usersHandler.ChangeRole)
			users.DELETE("/:id", usersHandler.DeleteUser)
		}

		// fine-grained project permissions live in the policy engine, so
		// these routes only require authentication
		api.POST("/projects", projectsHandler.CreateProject)
		api.GET("/projects", projectsHandler.ListProjects)
		api.GET("/projects/:id", projectsHandler.GetProject)
		api.PUT("/projects/:id", projectsHandler.UpdateProject)
		api.DELETE("/projects/:id", projectsHandler.DeleteProject)

		api.POST("/projects/:id/assign", assignmentsHandler.Assign)
		api.DELETE("/projects/:id/assign/:userId", assignmentsHandler.Remove)
		api.PATCH("/projects/:id/assign-lead", assignmentsHandler.AssignLead)
		api.GET("/projects/:id/members", assignmentsHandler.ListMembers)

		api.POST("/projects/:id/documents", documentsHandler.Upload)
		api.GET("/projects/:id/documents", documentsHandler.List)
		api.DELETE("/projects/:id/documents/:docId", documentsHandler.Delete)

		api.GET("/dashboard/stats", dashboardHandler.Stats)

		adminJobs := api.Group("/admin/jobs")
		adminJobs.Use(authMw.RequireRole(role.Admin))
		{
			adminJobs.GET("", adminJobsHandler.List)
			adminJobs.GET("/:id", adminJobsHandler.GetByID)
			adminJobs.POST("/:id/retry", adminJobsHandler.Retry)
			adminJobs.POST("/reprocess-dead", adminJobsHandler.ReprocessDead)
		}
	}

	return r
}

type limiterFunc func(keyFn func(*gin.Context) string) gin.HandlerFunc

// rateLimiters picks redis-backed fixed windows when a redis client is
// configured, falling back to the in-process limiter for single-node runs.
func rateLimiters(deps Deps) (authLimit, apiLimit limiterFunc) {
	limit := deps.Cfg.RateLimitRequests
	window := deps.Cfg.RateLimitWindow

	if deps.Redis != nil {
		authRL := middlewares.NewRedisRateLimiter(deps.Redis, limit/5+1, window)
		apiRL := middlewares.NewRedisRateLimiter(deps.Redis, limit, window)
		return authRL.RateLimiterMiddleware, apiRL.RateLimiterMiddleware
	}

	authRL := middlewares.NewRateLimiter(limit/5+1, window)
	apiRL := middlewares.NewRateLimiter(limit, window)
	return authRL.RateLimiterMiddleware, apiRL.RateLimiterMiddleware
}
