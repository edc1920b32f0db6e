package router

import (
	"time"

	"medpos/internal/config"
	"medpos/internal/handler"
	"medpos/internal/middleware"
	"medpos/internal/model"
	"medpos/internal/repository"
	"medpos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB.
// receipts may be nil, which disables post-commit receipt jobs.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, receipts service.ReceiptQueue) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	uow := repository.NewUnitOfWork(db)
	saleRepo := repository.NewSaleRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	dossierRepo := repository.NewCNAMDossierRepository(db)
	stockRepo := repository.NewStockRepository(db)
	deviceRepo := repository.NewMedicalDeviceRepository(db)
	patientRepo := repository.NewPatientRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	invoices := service.NewInvoiceNumberGenerator(saleRepo, uow, cfg.InvoiceLocation())
	allocator := service.NewPaymentAllocator(paymentRepo)
	dossierSvc := service.NewCNAMDossierService(uow, dossierRepo, time.Now)
	inventorySvc := service.NewInventoryService(stockRepo, deviceRepo)
	history := service.NewPatientHistoryRecorder(patientRepo)
	saleSvc := service.NewSaleService(uow, saleRepo, userRepo, invoices, allocator, dossierSvc, inventorySvc, history, receipts, time.Now)

	// ── Handlers ─────────────────────────────────────────────────────────────
	debug := !cfg.IsProduction()
	salesH := handler.NewSalesHandler(saleSvc, debug)
	dossiersH := handler.NewDossiersHandler(dossierSvc, debug)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/sales", middleware.RequireRole(model.RoleAdmin, model.RoleEmployee), salesH.CreateSale)
		v1.GET("/sales/:id", salesH.GetSale)

		dossiers := v1.Group("/dossiers")
		{
			dossiers.GET("/:id", dossiersH.GetDossier)
			dossiers.PATCH("/:id/status", middleware.RequireRole(model.RoleAdmin, model.RoleEmployee), dossiersH.UpdateStatus)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
