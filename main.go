package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/clearline-hq/partnerhub_backend/config"
	"github.com/clearline-hq/partnerhub_backend/controllers"
	"github.com/clearline-hq/partnerhub_backend/middleware"
	"github.com/clearline-hq/partnerhub_backend/repositories"
	"github.com/clearline-hq/partnerhub_backend/routes"
	"github.com/clearline-hq/partnerhub_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (tree caching)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DatabaseName())

	// Repositories
	dealRepo := repositories.NewDealRepository(db)
	partnerRepo := repositories.NewPartnerRepository(db)
	commissionRepo := repositories.NewCommissionRepository(db)
	invoiceRepo := repositories.NewInvoiceRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	txnRunner := repositories.NewMongoTxnRunner(client)

	// Services
	graph := services.NewReferralGraph(partnerRepo, dealRepo)
	attribution := services.NewAttributionService(graph, commissionRepo, policyRepo)
	dealService := services.NewDealService(dealRepo, commissionRepo, attribution, txnRunner)
	ledgerService := services.NewLedgerService(commissionRepo, invoiceRepo, txnRunner)

	// Controllers
	authController := controllers.NewAuthController(db, graph, redisClient)
	dealController := controllers.NewDealController(dealRepo, dealService, graph, redisClient)
	partnerController := controllers.NewPartnerController(partnerRepo, graph, redisClient)
	commissionController := controllers.NewCommissionController(commissionRepo, ledgerService)
	ledgerController := controllers.NewLedgerController(ledgerService)

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	// Routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterPartnerRoutes(e, partnerController, dealController, commissionController)
	routes.RegisterAdminRoutes(e, dealController, partnerController, commissionController, ledgerController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on http://localhost:%s", port)
	log.Fatal(e.Start(":" + port))
}
