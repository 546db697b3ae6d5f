package handlers

import (
	"time"

	"branch-pos/internal/auth"
	"branch-pos/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires every route onto a fresh engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(h.logger), middleware.Recovery(h.logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/login", h.Login)
	// --- FEATURE FLAG: self registration ---
	if h.cfg.AllowRegistration {
		authGroup.POST("/register", h.Register)
		h.logger.Warn("registration route is open, disable ALLOW_REGISTRATION in production")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.tokens))
	{
		api.GET("/auth/me", h.Me)

		// Reads needed at the till are open to every role.
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/scan/:barcode", h.ScanProduct)
		api.GET("/branches", h.ListBranches)
		api.GET("/branches/:id", h.GetBranch)
		api.GET("/inventory", h.ListInventory)
		api.GET("/inventory/:id", h.GetInventory)
		api.GET("/inventory/:id/movements", h.InventoryMovements)

		catalog := api.Group("/products", middleware.RequireCapability(auth.CapManageCatalog))
		catalog.POST("", h.CreateProduct)
		catalog.PUT("/:id", h.UpdateProduct)
		catalog.DELETE("/:id", h.DeleteProduct)

		branches := api.Group("/branches", middleware.RequireCapability(auth.CapManageBranches))
		branches.POST("", h.CreateBranch)
		branches.PUT("/:id", h.UpdateBranch)
		branches.DELETE("/:id", h.DeleteBranch)

		customers := api.Group("/customers", middleware.RequireCapability(auth.CapManageCustomers))
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.POST("", h.CreateCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.DELETE("/:id", h.DeleteCustomer)

		users := api.Group("/users", middleware.RequireCapability(auth.CapManageUsers))
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)

		stock := api.Group("/inventory", middleware.RequireCapability(auth.CapManageInventory))
		stock.POST("", h.CreateInventory)
		stock.PUT("/:id", h.UpdateInventory)
		stock.DELETE("/:id", h.DeleteInventory)
		stock.POST("/:id/adjust", h.AdjustInventory)
		stock.POST("/:id/restock", h.RestockInventory)
		stock.POST("/:id/count", h.CountInventory)

		api.GET("/sales", middleware.RequireCapability(auth.CapViewSales), h.ListSales)
		api.GET("/sales/:id", middleware.RequireCapability(auth.CapViewSales), h.GetSale)
		api.POST("/sales", middleware.RequireCapability(auth.CapCreateSale), h.CreateSale)
		api.PUT("/sales/:id", middleware.RequireCapability(auth.CapCreateSale), h.UpdateSale)
		api.DELETE("/sales/:id", middleware.RequireCapability(auth.CapVoidSale), h.CancelSale)

		reports := api.Group("/reports", middleware.RequireCapability(auth.CapViewReports))
		reports.GET("/dashboard", h.GetDashboard)
		reports.GET("/sales", h.GetSalesReport)
		reports.GET("/top-products", h.GetTopProducts)
		reports.GET("/valuation", h.GetStockValuation)
		reports.GET("/low-stock", h.GetLowStock)

		api.POST("/ask", middleware.RequireCapability(auth.CapUseAssistant), h.AskAI)
	}

	h.logger.Debug("routes registered", zap.Int("count", len(r.Routes())))
	return r
}
