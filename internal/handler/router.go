package handler

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/askbook/askbook/internal/middleware"
)

type RouterDeps struct {
	Chat          *ChatHandler
	Health        gin.HandlerFunc
	CORSAllowlist []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(deps.CORSAllowlist))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	api := engine.Group("/api/v1")
	api.POST("/chat", deps.Chat.Chat)
	api.GET("/chat/history", deps.Chat.History)
	api.POST("/chat/report", deps.Chat.Report)
	if deps.Health != nil {
		engine.GET("/healthz", deps.Health)
	}
	return engine
}
