// Package server exposes the wellbeing API over HTTP. Every response uses
// the ok envelope, so clients branch on one field instead of status codes.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/havenmind/haven/internal/store"
	"github.com/havenmind/haven/internal/users"
)

const clientIDContextKey = "haven_client_id"

var (
	errMissingStore        = errors.New("server: store dependency required")
	errMissingUsers        = errors.New("server: users dependency required")
	errMissingTokenManager = errors.New("server: token manager dependency required")
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	IssueToken(clientID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the handler's collaborators.
type Dependencies struct {
	Store  *store.Service
	Users  *users.Service
	Tokens TokenManager
	Logger *zap.Logger
	Clock  func() time.Time
}

// NewHTTPHandler builds the gin router serving the wellbeing API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Users == nil {
		return nil, errMissingUsers
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Client-Id"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		store:  deps.Store,
		users:  deps.Users,
		tokens: deps.Tokens,
		logger: logger,
		now:    clock,
	}

	router.GET("/api/health", handler.handleHealth)
	router.POST("/api/auth/login", handler.handleLogin)
	router.POST("/api/auth/anon", handler.handleAnonymousLogin)
	router.POST("/api/auth/register", handler.handleRegister)

	protected := router.Group("/api")
	protected.Use(handler.identifyClient)
	protected.POST("/chat", handler.handleChat)
	protected.GET("/chat/history", handler.handleChatHistory)
	protected.GET("/moods", handler.handleMoodSeries)
	protected.POST("/moods", handler.handleMoodAdd)
	protected.GET("/moods/summary", handler.handleMoodSummary)
	protected.POST("/assessment/submit", handler.handleAssessmentSubmit)
	protected.GET("/assessment/last", handler.handleAssessmentLast)
	protected.POST("/survey/sus", handler.handleSurvey("sus"))
	protected.POST("/survey/satisfaction", handler.handleSurvey("satisfaction"))
	protected.POST("/cognitive/save", handler.handleCognitiveSave)
	protected.GET("/report", handler.handleReport)

	return router, nil
}

type httpHandler struct {
	store  *store.Service
	users  *users.Service
	tokens TokenManager
	logger *zap.Logger
	now    func() time.Time
}

func respondOK(c *gin.Context, extra gin.H) {
	payload := gin.H{"ok": true}
	for key, value := range extra {
		payload[key] = value
	}
	c.JSON(http.StatusOK, payload)
}

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"ok": false, "message": message})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	respondData(c, gin.H{"status": "ok"})
}

// identifyClient resolves the caller from a bearer token or, failing that,
// the X-Client-Id correlation header.
func (h *httpHandler) identifyClient(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		subject, err := h.tokens.ValidateToken(token)
		if err != nil {
			h.logger.Warn("token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "unauthorized"})
			return
		}
		c.Set(clientIDContextKey, subject)
		c.Next()
		return
	}
	if correlation := strings.TrimSpace(c.GetHeader("X-Client-Id")); correlation != "" {
		c.Set(clientIDContextKey, correlation)
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "unauthorized"})
}

func (h *httpHandler) clientID(c *gin.Context) (store.ClientID, bool) {
	clientID, err := store.NewClientID(c.GetString(clientIDContextKey))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return clientID, true
}
