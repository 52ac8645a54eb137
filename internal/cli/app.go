package cli

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"libcirc/internal/library/catalog"
	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
	"libcirc/internal/library/lending"
	"libcirc/internal/library/stats"
	_ "libcirc/internal/platform/apidocs"
	"libcirc/internal/platform/auth"
	"libcirc/internal/platform/config"
	"libcirc/internal/platform/db"
	"libcirc/internal/platform/logging"
)

// App holds every wired service of one process.
type App struct {
	Config *config.Config
	DB     *db.DB
	Log    *log.Logger

	Ledger  *ledger.Ledger
	Copies  *copies.Registry
	Catalog *catalog.Service
	Lending *lending.Service
	Stats   *stats.Aggregator
	Auth    *auth.Service

	jwtSecret []byte
}

func NewApp(cfg *config.Config, conn *db.DB, logger *log.Logger, clock ledger.Clock) *App {
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		// dev のみ（release は config.Validate で弾く）。再起動でトークンは無効になる
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		logger.Warn("auth.jwt_secret not set; using a random per-process secret")
	}

	led := ledger.New(conn, clock)
	reg := copies.NewRegistry(conn, led, logger.WithPrefix("copies"))
	return &App{
		Config:  cfg,
		DB:      conn,
		Log:     logger,
		Ledger:  led,
		Copies:  reg,
		Catalog: catalog.NewService(conn, reg, led, logger.WithPrefix("catalog")),
		Lending: lending.NewService(conn, reg, led, logger.WithPrefix("lending")),
		Stats:   stats.NewAggregator(conn, led.Clock(), logger.WithPrefix("stats")),
		Auth: auth.NewService(conn, led, auth.Options{
			JWTSecret: secret,
			AdminCode: cfg.Auth.AdminCode,
			TokenTTL:  cfg.Auth.TokenTTL,
		}),
		jwtSecret: secret,
	}
}

func (a *App) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.Middleware(a.Log.WithPrefix("http")), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if a.Config.IsDev() {
		// CORS（開発中のみ必要）
		origins := a.Config.Server.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", logging.HeaderRequestID},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))

		// API ドキュメント
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	// /api/v1
	api := r.Group("/api/v1")
	rt := auth.Routes{
		Public: api,
		User:   api.Group("", auth.RequireAuth(a.jwtSecret)),
		Admin:  api.Group("", auth.RequireAuth(a.jwtSecret), auth.RequireRole(auth.RoleAdmin)),
	}
	auth.RegisterRoutes(rt, a.Auth)
	catalog.RegisterRoutes(rt, a.Catalog)
	copies.RegisterRoutes(rt, a.Copies)
	lending.RegisterRoutes(rt, a.Lending)
	ledger.RegisterRoutes(rt, a.Ledger)
	stats.RegisterRoutes(rt, a.Stats)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
	return r
}
