package router

import (
	"time"

	"paylog/internal/config"
	"paylog/internal/handler"
	"paylog/internal/infra"
	"paylog/internal/middleware"
	"paylog/internal/repository"
	"paylog/internal/service"
	"paylog/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, notifCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimit := cfg.RateLimitPerMinute
	if apiLimit <= 0 {
		apiLimit = 1000
	}
	bulkLimit := cfg.BulkRateLimitPerMinute
	if bulkLimit <= 0 {
		bulkLimit = 30
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(apiLimit, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)
	paymentTypeRepo := repository.NewPaymentTypeRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Worker dispatcher — injected into services that emit domain events
	dispatcher := worker.NewDispatcher(rdb)
	dlq := worker.NewDeadLetterQueue(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	vendorSvc := service.NewVendorService(vendorRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, paymentRepo, vendorRepo, categoryRepo, currencyRepo, dispatcher)
	paymentSvc := service.NewPaymentService(invoiceRepo, paymentRepo, paymentTypeRepo, dispatcher)
	bulkSvc := service.NewBulkService(invoiceSvc, invoiceRepo, paymentRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	bulkH := handler.NewBulkHandler(bulkSvc)
	vendorsH := handler.NewVendorsHandler(vendorSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	referenceH := handler.NewReferenceHandler(currencyRepo, paymentTypeRepo)
	opsH := handler.NewOpsHandler(dlq)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, notifCB, dlq))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	adminTier := middleware.RequireRole(service.RoleAdmin, service.RoleSuperAdmin)
	anyRole := middleware.RequireRole(service.RoleAssociate, service.RoleManager, service.RoleAdmin, service.RoleSuperAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		// Invoices — lifecycle transitions are admin-tier; submission,
		// resubmission and payment recording are open to any role, with
		// ownership enforced by the engine's approval gate.
		v1.POST("/invoices", anyRole, invoicesH.Create)
		v1.GET("/invoices", anyRole, invoicesH.List)
		v1.GET("/invoices/:id", anyRole, invoicesH.Get)
		v1.POST("/invoices/:id/approve", adminTier, invoicesH.Approve)
		v1.POST("/invoices/:id/reject", adminTier, invoicesH.Reject)
		v1.POST("/invoices/:id/hold", adminTier, invoicesH.Hold)
		v1.POST("/invoices/:id/release", adminTier, invoicesH.Release)
		v1.POST("/invoices/:id/resubmit", anyRole, invoicesH.Resubmit)
		v1.PATCH("/invoices/:id/hide", adminTier, invoicesH.Hide)
		v1.PATCH("/invoices/:id/unhide", adminTier, invoicesH.Unhide)

		// Bulk operations — narrower bucket: one request fans out into one
		// row-locked transaction per invoice id
		bulkLimiter := middleware.BulkRateLimiter(bulkLimit)
		v1.POST("/invoices/bulk-approve", adminTier, bulkLimiter, bulkH.BulkApprove)
		v1.POST("/invoices/bulk-reject", adminTier, bulkLimiter, bulkH.BulkReject)
		v1.POST("/invoices/export", adminTier, bulkLimiter, bulkH.Export)

		// Payments
		v1.POST("/payments", anyRole, paymentsH.Record)
		v1.PATCH("/payments/:id/approve", adminTier, paymentsH.Approve)
		v1.DELETE("/payments/:id", adminTier, paymentsH.Reverse)
		v1.GET("/invoices/:id/payments", anyRole, paymentsH.ListByInvoice)

		// Master data
		v1.GET("/vendors", anyRole, vendorsH.List)
		v1.GET("/vendors/:id", anyRole, vendorsH.Get)
		vendors := v1.Group("/vendors", adminTier)
		{
			vendors.POST("", vendorsH.Create)
			vendors.PUT("/:id", vendorsH.Update)
			vendors.DELETE("/:id", vendorsH.Deactivate)
		}

		v1.GET("/categories", anyRole, categoriesH.List)
		categories := v1.Group("/categories", adminTier)
		{
			categories.POST("", categoriesH.Create)
			categories.DELETE("/:id", categoriesH.Deactivate)
		}

		v1.GET("/currencies", anyRole, referenceH.ListCurrencies)
		v1.GET("/payment-types", anyRole, referenceH.ListPaymentTypes)

		// Ops — super_admin only
		ops := v1.Group("/ops", middleware.RequireRole(service.RoleSuperAdmin))
		{
			ops.GET("/dlq", opsH.DLQStats)
			ops.POST("/dlq/:queue/requeue", opsH.RequeueDLQ)
		}

		// Users — super_admin only
		users := v1.Group("/users", middleware.RequireRole(service.RoleSuperAdmin))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}
	}

	return r
}
