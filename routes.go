package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setupRoutes 设置路由
func setupRoutes(appServer *AppServer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(corsMiddleware())
	router.Use(errorHandlingMiddleware())

	router.GET("/", appServer.rootHandler)
	router.GET("/health", appServer.healthHandler)
	router.GET("/health/detailed", appServer.healthDetailedHandler)
	router.GET("/ws/:session_id", appServer.websocketHandler)

	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return appServer.mcpServer },
		nil,
	)
	router.Any("/mcp", gin.WrapH(mcpHandler))
	router.Any("/mcp/*path", gin.WrapH(mcpHandler))

	api := router.Group("/api")
	{
		api.POST("/scraping/start/:session_id", appServer.startScrapingHandler)
		api.POST("/scraping/continue/:session_id", appServer.continueScrapingHandler)

		api.POST("/responses/generate/:session_id", appServer.generateRepliesHandler)
		api.POST("/responses/validate", appServer.validateReplyHandler)
		api.POST("/responses/publish/:session_id", appServer.publishRepliesHandler)

		api.GET("/sessions/:session_id", appServer.getSessionHandler)
		api.GET("/sessions/:session_id/screenshot", appServer.screenshotHandler)
		api.DELETE("/sessions/:session_id", appServer.deleteSessionHandler)

		api.POST("/export/excel/:session_id", appServer.exportExcelHandler)
		api.GET("/export/json/:session_id", appServer.exportJSONHandler)

		api.GET("/history", appServer.historyHandler)
	}

	return router
}
