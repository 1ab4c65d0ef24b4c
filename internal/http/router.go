package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"talkmate/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	chatH *ChatHandler,
	wsH *WSHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("", jsonContentTypeMiddleware())
	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/oauth", userH.OAuthLogin)
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)

	private := api.Group("", JWTAuthMiddleware(jwtSvc))
	private.GET("/me", userH.Me)
	private.GET("/characters", chatH.ListCharacters)
	private.GET("/personas", chatH.ListPersonas)

	chat := private.Group("/chat")
	chat.POST("/select", chatH.Select)
	chat.GET("/messages", chatH.GetMessages)
	chat.POST("/messages", chatH.PostMessage)
	chat.PUT("/voice", chatH.SetVoice)
	chat.PUT("/input", chatH.SetInput)
	chat.POST("/input/submit", chatH.SubmitInput)
	chat.GET("/speech", chatH.SpeechStatus)

	// El upgrade no lleva Content-Type JSON.
	if wsH != nil {
		r.GET("/ws", JWTAuthMiddleware(jwtSvc), wsH.Serve)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
