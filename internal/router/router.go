// Package router assembles the HTTP surface of the API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "expensetracker/internal/docs" // Import swagger docs
	"expensetracker/internal/handlers"
	"expensetracker/internal/mailer"
	"expensetracker/internal/middleware"
	"expensetracker/internal/services"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Users      services.UserServicer
	Sessions   services.SessionServicer
	Categories services.CategoryServicer
	Expenses   services.ExpenseServicer
	Audit      services.AuditServicer
	Mailer     mailer.Mailer

	AppURL         string
	FrontendOrigin string
}

// New returns a Gin engine with every route mounted under /api.
func New(d Deps) *gin.Engine {
	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Audit, d.Mailer, d.AppURL)
	categoryHandler := handlers.NewCategoryHandler(d.Categories, d.Audit)
	expenseHandler := handlers.NewExpenseHandler(d.Expenses, d.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.CORS(d.FrontendOrigin))
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	api.POST("/users", authHandler.Signup)
	api.POST("/session", authHandler.Login)
	api.POST("/passwords", authHandler.RequestPasswordReset)
	api.POST("/passwords/reset", authHandler.ResetPassword)

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(d.Sessions))

	protected.GET("/session", authHandler.Session)
	protected.DELETE("/session", authHandler.Logout)

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/tree", categoryHandler.GetCategoryTree)
	categories.GET("/options", categoryHandler.GetCategoryOptions)
	categories.POST("", categoryHandler.CreateCategory)
	categories.POST("/update_position", categoryHandler.UpdatePositions)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.PATCH("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	expenses := protected.Group("/expenses")
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("/:id", expenseHandler.GetExpenseByID)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.PATCH("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	return router
}
