package main

import (
	"log"
	"os"
	"time"

	"roblox-license-platform/configs"
	_ "roblox-license-platform/docs"
	"roblox-license-platform/internal/cache"
	"roblox-license-platform/internal/database"
	"roblox-license-platform/internal/handlers"
	"roblox-license-platform/internal/middleware"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title Roblox License Platform API
// @version 1.0
// @description License key issuance and place whitelisting for third-party game servers

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default configuration")
	}

	if err := configs.LoadConfig(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize the shared store; the handle is passed down explicitly
	db, err := database.Connect(configs.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	cacheMgr := cache.NewCacheManager()
	defer cacheMgr.Close()

	// Services
	authService := services.NewAuthService(db)
	licenseService := services.NewLicenseService(db)
	scriptService := services.NewScriptService()

	// Handlers
	authHandler := handlers.NewAuthHandler(db, authService)
	productHandler := handlers.NewProductHandler(db, licenseService, scriptService)
	whitelistHandler := handlers.NewWhitelistHandler(licenseService)
	trackingHandler := handlers.NewTrackingHandler(licenseService, cacheMgr)
	wsHandler := handlers.NewWebSocketHandler()

	// Setup Gin router
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global middleware
	router.Use(middleware.ValidationMiddleware())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public tracking routes called by game servers
	track := router.Group("/api/track")
	track.POST("/verify", trackingHandler.Verify)
	track.GET("/ping", trackingHandler.Ping)
	track.GET("/stats/:productKey", trackingHandler.Stats)

	// Operator auth
	auth := router.Group("/api/auth")
	auth.POST("/register", middleware.LoginThrottleMiddleware(cacheMgr, authService), authHandler.Register)
	auth.POST("/login", middleware.LoginThrottleMiddleware(cacheMgr, authService), authHandler.Login)
	auth.GET("/me", middleware.AuthMiddleware(authService), authHandler.Me)
	auth.POST("/logout", middleware.AuthMiddleware(authService), authHandler.Logout)

	// Protected dashboard routes
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(authService))

	protected.GET("/products", productHandler.List)
	protected.POST("/products", productHandler.Create)
	protected.GET("/products/:id", productHandler.Get)
	protected.PUT("/products/:id", productHandler.Update)
	protected.DELETE("/products/:id", productHandler.Delete)
	protected.GET("/products/:id/users", productHandler.Users)
	protected.GET("/products/:id/script", productHandler.Script)

	protected.GET("/whitelist/product/:productId", whitelistHandler.List)
	protected.POST("/whitelist/product/:productId", whitelistHandler.Add)
	protected.PUT("/whitelist/:id/status", whitelistHandler.SetStatus)
	protected.PUT("/whitelist/:id/toggle", whitelistHandler.Toggle)
	protected.DELETE("/whitelist/:id", whitelistHandler.Delete)

	// Live dashboard feed
	if configs.AppConfig.EnableWebSocket {
		go wsHandler.RunHub()
		cacheMgr.SubscribeVerifyEvents(wsHandler.BroadcastVerify)
		router.GET("/ws", wsHandler.HandleConnections)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"services": map[string]string{
				"database": "connected",
				"redis": func() string {
					if cacheMgr.IsAvailable() {
						return "connected"
					}
					return "local_cache_only"
				}(),
			},
		})
	})

	// Start server
	port := ":" + configs.AppConfig.ServerPort
	log.Printf("Server starting on port %s", port)

	if err := router.Run(port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
