package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"chat-push/internal/config"
	"chat-push/internal/interfaces"
	"chat-push/internal/messaging"
	"chat-push/internal/metrics"
	"chat-push/internal/models"
	"chat-push/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventNotifier передает событие "сообщение создано" зарегистрированным хукам.
type EventNotifier interface {
	Notify(ctx context.Context, event models.MessageEvent)
}

// QueueMonitor - состояние очереди и воркеров для админки.
type QueueMonitor interface {
	QueueStatus(ctx context.Context) (messaging.QueueStatus, error)
	Stats() messaging.ConsumerStats
}

// JobStats - счетчики обработанных заданий.
type JobStats interface {
	Stats() messaging.ProcessorStats
}

// Deps - зависимости PushHandler. Queue, Jobs и RedisPing опциональны.
type Deps struct {
	Registry    interfaces.TokenRegistry
	Engine      service.DispatchEngine
	Events      EventNotifier
	Credentials config.ProviderCredentials
	Queue       QueueMonitor
	Jobs        JobStats
	RedisPing   func(ctx context.Context) error
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PushHandler обрабатывает HTTP запросы сервиса рассылки.
type PushHandler struct {
	deps               Deps
	jwtSecret          string
	interServiceSecret string
	logger             *zap.Logger
}

func NewPushHandler(deps Deps, auth config.AuthConfig, logger *zap.Logger) *PushHandler {
	return &PushHandler{
		deps:               deps,
		jwtSecret:          auth.JWTSecret,
		interServiceSecret: auth.InterServiceSecret,
		logger:             logger.Named("PushHandler"),
	}
}

// RegisterRoutes регистрирует маршруты сервиса.
func (h *PushHandler) RegisterRoutes(router gin.IRouter) {
	userAuth := UserAuthMiddleware(h.jwtSecret, h.logger)
	internalAuth := InterServiceAuthMiddleware(h.interServiceSecret, h.logger)

	// --- API регистрации токенов (для клиентов) ---
	push := router.Group("/api/push")
	{
		push.GET("/config", h.getWebConfig)
		tokens := push.Group("/tokens", userAuth)
		tokens.POST("", h.registerToken)
		tokens.DELETE("", h.unregisterToken)
		tokens.GET("", h.listTokens)
	}

	// --- Внутренние маршруты ---
	internal := router.Group("/internal", internalAuth)
	{
		internal.POST("/events/message-created", h.messageCreated)
		internal.POST("/push/test", h.sendTestNotification)
		internal.GET("/push/status", h.status)
		internal.GET("/push/queue", h.queueStatus)
	}
}

// --- Events ---

func (h *PushHandler) messageCreated(c *gin.Context) {
	var event models.MessageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Invalid message-created event", zap.Error(err))
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid event body"})
		return
	}
	if event.MessageID == "" {
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "message_id is required"})
		return
	}

	// Ошибки уведомлений не влияют на ответ
	h.deps.Events.Notify(c.Request.Context(), event)
	c.JSON(http.StatusAccepted, apiResponse{Success: true})
}

// --- Tokens ---

type registerTokenRequest struct {
	Token             string  `json:"token"`
	Environment       string  `json:"environment"`
	DeviceInformation *string `json:"device_information"`
}

type registerTokenResponse struct {
	Success bool   `json:"success"`
	TokenID string `json:"token_id,omitempty"`
	Message string `json:"message"`
}

type unregisterTokenRequest struct {
	Token string `json:"token"`
}

type listTokensResponse struct {
	Success bool                        `json:"success"`
	Tokens  []models.DeviceRegistration `json:"tokens"`
}

func (h *PushHandler) registerToken(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "register", "invalid request body")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		h.badRequest(c, "register", models.ErrInvalidToken.Error())
		return
	}
	env, err := models.ParseEnvironment(req.Environment)
	if err != nil {
		h.badRequest(c, "register", err.Error())
		return
	}

	id, err := h.deps.Registry.RegisterToken(c.Request.Context(), userID, req.Token, env, req.DeviceInformation)
	if err != nil {
		h.serverError(c, "register", err)
		return
	}

	metrics.TokenRegistrationsTotal.WithLabelValues("register", "ok").Inc()
	c.JSON(http.StatusOK, registerTokenResponse{
		Success: true,
		TokenID: id.String(),
		Message: "Push token registered",
	})
}

func (h *PushHandler) unregisterToken(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var req unregisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		h.badRequest(c, "unregister", models.ErrInvalidToken.Error())
		return
	}

	if err := h.deps.Registry.DeactivateToken(c.Request.Context(), strings.TrimSpace(req.Token), &userID); err != nil {
		h.serverError(c, "unregister", err)
		return
	}

	metrics.TokenRegistrationsTotal.WithLabelValues("unregister", "ok").Inc()
	c.JSON(http.StatusOK, apiResponse{Success: true, Message: "Push token removed"})
}

func (h *PushHandler) listTokens(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	regs, err := h.deps.Registry.ActiveTokensForUser(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, listTokensResponse{Success: true, Tokens: regs})
}

type webConfigResponse struct {
	Success  bool                `json:"success"`
	Config   config.WebSDKConfig `json:"config"`
	VapidKey string              `json:"vapid_key"`
}

func (h *PushHandler) getWebConfig(c *gin.Context) {
	cfg, vapid, ok := h.deps.Credentials.WebConfig()
	if !ok {
		c.JSON(http.StatusNotFound, apiResponse{Success: false, Message: "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, webConfigResponse{Success: true, Config: cfg, VapidKey: vapid})
}

// --- Admin ---

type testNotificationRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type testNotificationResponse struct {
	Success bool                  `json:"success"`
	Result  models.DispatchResult `json:"result"`
}

func (h *PushHandler) sendTestNotification(c *gin.Context) {
	var req testNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "user_id is required"})
		return
	}
	if req.Title == "" {
		req.Title = "Test notification"
	}
	if req.Body == "" {
		req.Body = "Push notifications are working"
	}

	result, err := h.deps.Engine.SendToUser(c.Request.Context(), req.UserID, req.Title, req.Body, models.SendOptions{
		Data: map[string]any{"type": "test"},
	})
	if err != nil {
		if errors.Is(err, models.ErrReservedDataKey) || errors.Is(err, models.ErrEmptyTarget) {
			c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: err.Error()})
			return
		}
		h.logger.Error("Test notification failed", zap.String("userID", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, testNotificationResponse{Success: result.Delivered(), Result: result})
}

type statusResponse struct {
	Initialized bool   `json:"initialized"`
	ProjectID   string `json:"project_id,omitempty"`
	Source      string `json:"credentials_source,omitempty"`
}

func (h *PushHandler) status(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Initialized: h.deps.Engine.IsInitialized(),
		ProjectID:   h.deps.Engine.ProjectID(),
		Source:      h.deps.Credentials.Source,
	})
}

type queueResponse struct {
	Queue      *messaging.QueueStatus    `json:"queue,omitempty"`
	QueueError string                    `json:"queue_error,omitempty"`
	Consumer   *messaging.ConsumerStats  `json:"consumer,omitempty"`
	Jobs       *messaging.ProcessorStats `json:"jobs,omitempty"`
	Redis      string                    `json:"redis"`
}

func (h *PushHandler) queueStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := queueResponse{Redis: "disabled"}
	if h.deps.Queue != nil {
		status, err := h.deps.Queue.QueueStatus(ctx)
		if err != nil {
			h.logger.Warn("Failed to inspect queue", zap.Error(err))
			resp.QueueError = err.Error()
		} else {
			resp.Queue = &status
		}
		stats := h.deps.Queue.Stats()
		resp.Consumer = &stats
	}
	if h.deps.Jobs != nil {
		jobs := h.deps.Jobs.Stats()
		resp.Jobs = &jobs
	}
	if h.deps.RedisPing != nil {
		if err := h.deps.RedisPing(ctx); err != nil {
			resp.Redis = "error: " + err.Error()
		} else {
			resp.Redis = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// --- Helpers ---

func (h *PushHandler) badRequest(c *gin.Context, operation, message string) {
	metrics.TokenRegistrationsTotal.WithLabelValues(operation, "invalid").Inc()
	c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: message})
}

func (h *PushHandler) serverError(c *gin.Context, operation string, err error) {
	metrics.TokenRegistrationsTotal.WithLabelValues(operation, "error").Inc()
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
}
