package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaboard/backend/internal/board"
	"github.com/aulaboard/backend/internal/notify"
	"github.com/aulaboard/backend/internal/users"
)

const (
	actorContextKey     = "aulaboard_actor"
	requestIDContextKey = "aulaboard_request_id"
	requestIDHeader     = "X-Request-ID"
)

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingAccounts      = errors.New("accounts service dependency required")
	errMissingBoards        = errors.New("board service dependency required")
	errMissingNotifications = errors.New("notification service dependency required")
	errMissingBus           = errors.New("broadcast bus dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates bearer tokens for HTTP requests and
// socket handshakes.
type TokenManager interface {
	IssueToken(userID uint) (string, int64, error)
	ValidateToken(token string) (uint, error)
}

// Dependencies wires the HTTP layer to the services beneath it.
type Dependencies struct {
	TokenManager  TokenManager
	Accounts      *users.Service
	Boards        *board.Service
	Notifications *notify.Service
	Bus           notify.Bus
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router serving the full API, including
// the notification WebSocket endpoint.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Boards == nil {
		return nil, errMissingBoards
	}
	if deps.Notifications == nil {
		return nil, errMissingNotifications
	}
	if deps.Bus == nil {
		return nil, errMissingBus
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(correlateRequest)
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:        deps.TokenManager,
		accounts:      deps.Accounts,
		boards:        deps.Boards,
		notifications: deps.Notifications,
		bus:           deps.Bus,
		logger:        logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/ws/notifications", handler.handleNotificationSocket)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/me", handler.handleMe)

	protected.GET("/boards", handler.handleListBoards)
	protected.POST("/boards", handler.handleCreateBoard)
	protected.GET("/boards/:id", handler.handleGetBoard)
	protected.PATCH("/boards/:id", handler.handleUpdateBoard)
	protected.DELETE("/boards/:id", handler.handleDeleteBoard)
	protected.POST("/boards/:id/members", handler.handleManageMembers)
	protected.GET("/boards/:id/lists", handler.handleBoardLists)
	protected.POST("/boards/:id/lists", handler.handleCreateList)
	protected.GET("/boards/:id/activity", handler.handleBoardActivity)
	protected.GET("/boards/:id/labels", handler.handleBoardLabels)
	protected.POST("/boards/:id/labels", handler.handleCreateLabel)

	protected.PATCH("/lists/:id", handler.handleUpdateList)
	protected.DELETE("/lists/:id", handler.handleDeleteList)
	protected.GET("/lists/:id/cards", handler.handleListCards)
	protected.POST("/lists/:id/cards", handler.handleCreateCard)

	protected.GET("/cards/:id", handler.handleGetCard)
	protected.PATCH("/cards/:id", handler.handleUpdateCard)
	protected.DELETE("/cards/:id", handler.handleDeleteCard)
	protected.POST("/cards/:id/assignees", handler.handleManageAssignees)
	protected.GET("/cards/:id/comments", handler.handleCardComments)
	protected.POST("/cards/:id/comments", handler.handleAddComment)
	protected.GET("/cards/:id/checklist", handler.handleCardChecklist)
	protected.POST("/cards/:id/checklist", handler.handleAddChecklistItem)
	protected.PATCH("/checklist/:id", handler.handleToggleChecklistItem)
	protected.POST("/labels/:id/cards", handler.handleManageLabelCards)

	protected.GET("/notifications", handler.handleListNotifications)
	protected.POST("/notifications/:id/read", handler.handleMarkRead)
	protected.POST("/notifications/read-all", handler.handleMarkAllRead)

	protected.GET("/push/subscriptions", handler.handleListSubscriptions)
	protected.POST("/push/subscriptions", handler.handleRegisterSubscription)
	protected.DELETE("/push/subscriptions/:id", handler.handleDeleteSubscription)

	return router, nil
}

type httpHandler struct {
	tokens        TokenManager
	accounts      *users.Service
	boards        *board.Service
	notifications *notify.Service
	bus           notify.Bus
	logger        *zap.Logger
}

// correlateRequest tags each request with an id, honoring one supplied by
// an upstream proxy, so error logs can be matched to client reports.
func correlateRequest(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	c.Writer.Header().Set(requestIDHeader, requestID)
	c.Next()
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	userID, err := h.tokens.ValidateToken(header[len(prefix):])
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	actor, err := h.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(actorContextKey, actor)
	c.Next()
}

func (h *httpHandler) actor(c *gin.Context) (board.User, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return board.User{}, false
	}
	actor, ok := value.(board.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return board.User{}, false
	}
	return actor, true
}

// respondError maps service errors onto the HTTP status contract:
// Forbidden to 403, validation failures to 400, missing entities to 404.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var boardValidation *board.ValidationError
	var userValidation *users.ValidationError
	switch {
	case errors.Is(err, board.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.As(err, &boardValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"field":  boardValidation.Field,
			"reason": boardValidation.Reason,
		})
	case errors.As(err, &userValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"field":  userValidation.Field,
			"reason": userValidation.Reason,
		})
	case errors.Is(err, board.ErrNotFound), errors.Is(err, notify.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, notify.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "reason": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": name, "reason": "must be numeric"})
		return 0, false
	}
	return uint(value), true
}

// parseDate turns a due-date field into a pointer plus a presence flag.
// An empty string clears the date; a nil input leaves it unchanged.
func parseDate(raw *string) (*time.Time, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if *raw == "" {
		return nil, true, nil
	}
	parsed, err := time.Parse(time.DateOnly, *raw)
	if err != nil {
		return nil, false, err
	}
	return &parsed, true, nil
}
