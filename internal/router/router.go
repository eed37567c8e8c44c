package router

import (
	"time"

	"fastclick/internal/config"
	"fastclick/internal/handler"
	"fastclick/internal/infra"
	"fastclick/internal/metrics"
	"fastclick/internal/middleware"
	"fastclick/internal/model"
	"fastclick/internal/realtime"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const gameCacheTTL = 10 * time.Minute

// Core holds the long-lived pieces the composition root starts and stops
// itself: the session gate loop, the websocket hub, the job queue, the object
// store and the mail breaker.
type Core struct {
	Gate    *service.SessionGate
	Hub     *realtime.Hub
	Jobs    service.JobQueue
	Store   infra.ObjectStore
	Breaker *infra.CircuitBreaker
}

// Services is every domain service, built once and shared by the HTTP layer
// and the background workers.
type Services struct {
	Auth      service.AuthService
	Inventory service.InventoryService
	Catalog   service.CatalogService
	Basket    service.BasketService
	Checkout  service.CheckoutService
	Financial service.FinancialService
	Receipts  service.ReceiptService

	Sessions     repository.SessionRepository
	ReceiptsRepo repository.ReceiptRepository
}

// BuildServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB/Redis
func BuildServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, core Core) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	gameRepo := repository.NewCachedGameRepository(repository.NewGameRepository(db), rdb, gameCacheTTL)
	basketStore := repository.NewRedisBasketStore(rdb, cfg.BasketTTL())

	// ── Services ─────────────────────────────────────────────────────────────
	return &Services{
		Auth:      service.NewAuthService(userRepo, cfg),
		Inventory: service.NewInventoryService(core.Gate, inventoryRepo, userRepo, movementRepo, cfg.DefaultPhoneRegion),
		Catalog:   service.NewCatalogService(gameRepo, inventoryRepo),
		Basket:    service.NewBasketService(basketStore, inventoryRepo, nil),
		Checkout: service.NewCheckoutService(core.Gate, basketStore, inventoryRepo, transactionRepo,
			movementRepo, receiptRepo, core.Jobs, nil),
		Financial: service.NewFinancialService(transactionRepo, inventoryRepo, statementRepo, userRepo,
			infra.NewRedisLocker(rdb), cfg.CashRatioDecimal(), nil),
		Receipts:     service.NewReceiptService(receiptRepo, core.Store),
		Sessions:     sessionRepo,
		ReceiptsRepo: receiptRepo,
	}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, core Core, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins, cfg.Env == "production"))
	r.Use(metrics.Middleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	usersH := handler.NewUsersHandler(svcs.Auth)
	sessionH := handler.NewSessionHandler(core.Gate, svcs.Sessions, core.Hub)
	gamesH := handler.NewGamesHandler(svcs.Catalog)
	inventoryH := handler.NewInventoryHandler(svcs.Inventory)
	basketH := handler.NewBasketHandler(svcs.Basket)
	checkoutH := handler.NewCheckoutHandler(svcs.Checkout)
	receiptsH := handler.NewReceiptsHandler(svcs.Receipts)
	statementsH := handler.NewStatementsHandler(svcs.Financial)

	admin := model.RoleAdmin
	cashier := model.RoleCashier
	seller := model.RoleSeller

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(handler.HealthDeps{
		DB: db, Redis: rdb, Gate: core.Gate, Hub: core.Hub, Breaker: core.Breaker,
	}))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Session status and countdown are readable by anyone.
	r.GET("/v1/session", sessionH.Status)
	r.GET("/v1/session/ws", sessionH.WS)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.POST("/session", middleware.RequireRole(admin), sessionH.Open)
		v1.POST("/session/close", middleware.RequireRole(admin), sessionH.Close)
		v1.GET("/sessions", middleware.RequireRole(admin), sessionH.List)

		v1.GET("/games", gamesH.List)
		v1.GET("/games/:name", gamesH.Get)
		v1.POST("/games", middleware.RequireRole(admin), gamesH.Create)

		inv := v1.Group("/inventory")
		{
			inv.GET("", middleware.RequireRole(admin, cashier), inventoryH.List)
			inv.GET("/:id", middleware.RequireRole(admin, cashier), inventoryH.Get)
			inv.POST("/deposit", middleware.RequireRole(admin, cashier), inventoryH.Deposit)
			inv.PATCH("/:id/available", middleware.RequireRole(admin, cashier), inventoryH.MarkAvailable)
			inv.PATCH("/:id/return", middleware.RequireRole(admin, cashier), inventoryH.Return)
		}
		v1.GET("/sellers/me/items", middleware.RequireRole(seller), inventoryH.MyItems)

		basket := v1.Group("/basket", middleware.RequireRole(admin, cashier))
		{
			basket.GET("", basketH.Get)
			basket.POST("/items", basketH.Add)
			basket.DELETE("/items/:id", basketH.Remove)
			basket.DELETE("", basketH.Clear)
		}
		v1.POST("/checkout", middleware.RequireRole(admin, cashier), checkoutH.Checkout)

		v1.GET("/receipts", receiptsH.ListMine)
		v1.GET("/receipts/:id", receiptsH.Get)
		v1.GET("/receipts/:id/pdf", receiptsH.PDF)

		st := v1.Group("/statements")
		{
			st.GET("/house", middleware.RequireRole(admin), statementsH.House)
			st.GET("/sellers", middleware.RequireRole(admin), statementsH.Sellers)
			st.GET("/sellers/:id", middleware.RequireRole(admin, seller), statementsH.Seller)
			st.POST("/recompute", middleware.RequireRole(admin), statementsH.Recompute)
			st.GET("/export", middleware.RequireRole(admin), statementsH.Export)
			st.GET("/report", middleware.RequireRole(admin), statementsH.Report)
		}

		users := v1.Group("/users", middleware.RequireRole(admin))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
