package api

import (
	"net/http"
	"servidor_ocr/internal/api/handler"
	"servidor_ocr/internal/api/middleware"
	"servidor_ocr/internal/service"
	"servidor_ocr/internal/storage"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouterDeps carries what SetupRouter wires. Without an AuthService the
// /api/v1 routes are open and /auth is not mounted; without an UploadDir
// stored images are not served (S3 storage).
type RouterDeps struct {
	LPRService  *service.LPRService
	AuthService *service.AuthService
	PlateFeed   *handler.PlateFeed
	UploadDir   string
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	lprH := handler.NewLPRHandler(deps.LPRService)
	r.POST("/upload", lprH.Upload)

	if deps.UploadDir != "" {
		r.Static(strings.TrimSuffix(storage.URLPrefix, "/"), deps.UploadDir)
	}

	if deps.PlateFeed != nil {
		wsHandler := handler.NewWebSocketHandler(deps.PlateFeed)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	v1 := r.Group("/api/v1")
	if deps.AuthService != nil {
		authHandler := handler.NewAuthHandler(deps.AuthService)
		authRoutes := r.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		authMw := middleware.NewAuthMiddleware(deps.AuthService)
		v1.Use(authMw.Authenticate())
		v1.Use(authMw.RequireRole(service.RoleAdmin, service.RoleOperator))
		v1.GET("/me", authHandler.Me)
	}
	{
		lprRoutes := v1.Group("/lpr")
		{
			lprRoutes.POST("/process-image", lprH.ProcessImage)
			lprRoutes.POST("/extract", lprH.Extract)
		}

		readingH := handler.NewReadingHandler(deps.LPRService)
		readingRoutes := v1.Group("/readings")
		{
			readingRoutes.GET("", readingH.ListReadings)
			readingRoutes.GET("/:id", readingH.GetReading)
		}
	}
	return r
}
