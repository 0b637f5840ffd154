package routes

import (
	"net/http"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/handler"
	"github.com/diaglab/labdesk-api/internal/presentation/http/middleware"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/metrics"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Patient   *handler.PatientHandler
	Staff     *handler.StaffHandler
	Catalog   *handler.CatalogHandler
	Order     *handler.OrderHandler
	Invoice   *handler.InvoiceHandler
	Printer   *handler.PrinterHandler
	Dashboard *handler.DashboardHandler
	Settings  *handler.SettingsHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Log             *logger.Logger
	// RateLimiter is created from Cfg.RateLimit when nil
	RateLimiter *middleware.UserRateLimiter
}

var (
	can    = middleware.RequirePermission
	onlyAs = middleware.RequireRole

	staffRoles = []string{
		entity.RoleAdmin,
		entity.RoleReceptionist,
		entity.RoleLabTechnician,
		entity.RoleDoctor,
	}
)

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewUserRateLimiter(middleware.RateLimiterConfigFrom(deps.Cfg.RateLimit))
	}

	v1 := router.Group("/api/v1")
	{
		// Public routes share the limiter, keyed by client IP
		public := v1.Group("")
		public.Use(rateLimiter.Middleware())
		registerAuthRoutes(public, h)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.RegisterPatient)
		auth.POST("/register/doctor", h.Auth.RegisterDoctor)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)
		auth.GET("/google/login", h.Auth.GoogleLogin)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
	}
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo})

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.GetProfile)
	protected.PUT("/auth/me", h.Auth.UpdateProfile)
	protected.PUT("/auth/password", h.Auth.ChangePassword)

	registerUserRoutes(protected, h)
	registerPatientRoutes(protected, h)
	registerStaffRoutes(protected, h)
	registerCatalogRoutes(protected, h)
	registerOrderRoutes(protected, h, idempotent)
	registerInvoiceRoutes(protected, h, idempotent)
	registerPrinterRoutes(protected, h)
	registerDashboardRoutes(protected, h)

	protected.GET("/settings", onlyAs(staffRoles...), h.Settings.GetSettings)
	protected.PUT("/settings", can(entity.PermManageSettings), h.Settings.UpdateSettings)
}

func registerUserRoutes(protected *gin.RouterGroup, h *Handlers) {
	users := protected.Group("/users")
	users.Use(can(entity.PermManageUsers))
	{
		users.GET("", h.User.List)
		users.POST("", h.User.Create)
		users.GET("/:id", h.User.Get)
		users.PUT("/:id", h.User.Update)
		users.DELETE("/:id", h.User.Delete)
	}
	protected.GET("/roles", can(entity.PermManageUsers), h.User.ListRoles)
}

func registerPatientRoutes(protected *gin.RouterGroup, h *Handlers) {
	patients := protected.Group("/patients")
	{
		patients.GET("/me", onlyAs(entity.RolePatient), h.Patient.Me)

		managed := patients.Group("")
		managed.Use(can(entity.PermManagePatients))
		managed.GET("", h.Patient.List)
		managed.POST("", h.Patient.Create)
		managed.GET("/:id", h.Patient.Get)
		managed.PUT("/:id", h.Patient.Update)
		managed.DELETE("/:id", h.Patient.Delete)
	}
}

func registerStaffRoutes(protected *gin.RouterGroup, h *Handlers) {
	doctors := protected.Group("/doctors")
	{
		doctors.GET("", onlyAs(staffRoles...), h.Staff.ListDoctors)
		doctors.GET("/:id", onlyAs(staffRoles...), h.Staff.GetDoctor)
		doctors.POST("", can(entity.PermManageDoctors), h.Staff.CreateDoctor)
		doctors.PUT("/:id", can(entity.PermManageDoctors), h.Staff.UpdateDoctor)
		doctors.DELETE("/:id", can(entity.PermManageDoctors), h.Staff.DeleteDoctor)
		doctors.POST("/:id/approve", can(entity.PermManageDoctors), h.Staff.ApproveDoctor)
	}

	technicians := protected.Group("/technicians")
	technicians.Use(onlyAs(entity.RoleAdmin))
	{
		technicians.GET("", h.Staff.ListTechnicians)
		technicians.POST("", h.Staff.CreateTechnician)
		technicians.GET("/:id", h.Staff.GetTechnician)
		technicians.PUT("/:id", h.Staff.UpdateTechnician)
		technicians.DELETE("/:id", h.Staff.DeleteTechnician)
	}
}

func registerCatalogRoutes(protected *gin.RouterGroup, h *Handlers) {
	write := can(entity.PermManageCatalog)

	categories := protected.Group("/test-categories")
	{
		categories.GET("", h.Catalog.ListCategories)
		categories.GET("/:id", h.Catalog.GetCategory)
		categories.POST("", write, h.Catalog.CreateCategory)
		categories.PUT("/:id", write, h.Catalog.UpdateCategory)
		categories.DELETE("/:id", write, h.Catalog.DeleteCategory)
	}

	tests := protected.Group("/tests")
	{
		tests.GET("", h.Catalog.ListLabTests)
		tests.GET("/:id", h.Catalog.GetLabTest)
		tests.POST("", write, h.Catalog.CreateLabTest)
		tests.PUT("/:id", write, h.Catalog.UpdateLabTest)
		tests.DELETE("/:id", write, h.Catalog.DeleteLabTest)
	}

	packages := protected.Group("/packages")
	{
		packages.GET("", h.Catalog.ListPackages)
		packages.GET("/:id", h.Catalog.GetPackage)
		packages.POST("", write, h.Catalog.CreatePackage)
		packages.PUT("/:id", write, h.Catalog.UpdatePackage)
		packages.DELETE("/:id", write, h.Catalog.DeletePackage)
	}
}

func registerOrderRoutes(protected *gin.RouterGroup, h *Handlers, idempotent gin.HandlerFunc) {
	orders := protected.Group("/orders")
	orders.Use(can(entity.PermViewOrders))
	{
		orders.GET("", h.Order.List)
		orders.GET("/worklist", can(entity.PermProcessSamples), h.Order.Worklist)
		orders.GET("/:id", h.Order.Get)
		orders.POST("", can(entity.PermCreateOrders), idempotent, h.Order.Create)
		orders.PUT("/:id/status", can(entity.PermProcessSamples), h.Order.UpdateStatus)
		orders.PUT("/:id/assign", can(entity.PermCreateOrders), h.Order.AssignTechnician)
		orders.POST("/:id/payments", can(entity.PermRecordPayments), idempotent, h.Order.RecordPayment)
		orders.PUT("/:id/items/:itemId/result", can(entity.PermEnterResults), h.Order.EnterResult)
		orders.POST("/:id/verify", can(entity.PermVerifyResults), h.Order.Verify)
		orders.POST("/:id/cancel", can(entity.PermCreateOrders), h.Order.Cancel)
	}
}

func registerInvoiceRoutes(protected *gin.RouterGroup, h *Handlers, idempotent gin.HandlerFunc) {
	manage := can(entity.PermManageInvoices)
	read := onlyAs(entity.RoleAdmin, entity.RoleReceptionist, entity.RolePatient)

	invoices := protected.Group("/invoices")
	{
		invoices.GET("", read, h.Invoice.List)
		invoices.GET("/:id", read, h.Invoice.Get)
		invoices.GET("/:id/payments", read, h.Invoice.ListPayments)
		invoices.POST("", manage, idempotent, h.Invoice.Create)
		invoices.POST("/refresh-overdue", manage, h.Invoice.RefreshOverdue)
		invoices.PUT("/:id", manage, h.Invoice.Update)
		invoices.DELETE("/:id", manage, h.Invoice.Delete)
		invoices.POST("/:id/recompute", manage, h.Invoice.Recompute)
		invoices.POST("/:id/payments", can(entity.PermRecordPayments), idempotent, h.Invoice.RecordPayment)
	}
}

func registerPrinterRoutes(protected *gin.RouterGroup, h *Handlers) {
	printerGroup := protected.Group("/printer")
	printerGroup.Use(can(entity.PermPrintReceipts))
	{
		printerGroup.GET("/status", h.Printer.GetStatus)
		printerGroup.POST("/test", h.Printer.TestPrint)
		printerGroup.POST("/invoices/:id", h.Printer.PrintInvoice)
		printerGroup.GET("/invoices/:id/preview", h.Printer.PreviewInvoice)
		printerGroup.POST("/orders/:id", h.Printer.PrintOrder)
	}
}

func registerDashboardRoutes(protected *gin.RouterGroup, h *Handlers) {
	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/stats", can(entity.PermViewDashboard), h.Dashboard.GetStats)
		dashboard.GET("/revenue", can(entity.PermViewReports), h.Dashboard.GetRevenue)
		dashboard.GET("/top-tests", can(entity.PermViewReports), h.Dashboard.GetTopTests)
	}
}
