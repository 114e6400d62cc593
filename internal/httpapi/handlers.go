package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"intake-platform/internal/auth"
	"intake-platform/internal/config"
	"intake-platform/internal/intake"
	"intake-platform/internal/store"
	"intake-platform/internal/webhook"
	"intake-platform/pkg/logger"
)

const serviceVersion = "1.0.0"

// signatureHeader is the provider's webhook signature header. Checked only
// when present; see VerifySignature.
const signatureHeader = "X-Vapi-Signature"

// CallReader is the read-side surface of the record store.
type CallReader interface {
	RecentCalls(ctx context.Context, limit int) ([]intake.CallRecord, error)
	CallByID(ctx context.Context, callID string) (intake.CallRecord, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal modules, return JSON.
type Handlers struct {
	Cfg        config.Config
	Auth       *auth.Manager
	Dispatcher *webhook.Dispatcher
	Calls      CallReader
	StatsCache *StatsCache // nil disables caching
}

// --- Webhook ---

// Webhook is the single inbound POST target for provider callbacks.
// Malformed JSON is the only client error; everything dispatchable returns
// 200 with a structured ack, including handler-internal failures.
func (h Handlers) Webhook(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Signature verification must run before any parsing so a future real
	// implementation short-circuits unauthenticated payloads.
	if sig := c.GetHeader(signatureHeader); sig != "" {
		if !VerifySignature(h.Cfg.App.WebhookSecret, body, sig) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}
	}

	evt, err := webhook.ParseEvent(body, log)
	if err != nil {
		log.Warn("webhook body rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	ack, state := h.Dispatcher.Dispatch(c.Request.Context(), evt)
	log.Info("webhook handled", "type", evt.DeclaredType, "state", string(state))
	c.JSON(http.StatusOK, ack)
}

// --- Health ---

func (h Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   h.Cfg.App.BrokerageName + " Webhook Server",
		"version":   serviceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                    "healthy",
		"data_directory":            h.Cfg.App.DataDir,
		"webhook_secret_configured": h.Cfg.App.WebhookSecret != "",
		"sink_configured":           h.Cfg.Sink.URL != "",
	})
}

// --- Auth ---

type loginRequest struct {
	OperatorID string `json:"operator_id"`
	Secret     string `json:"secret"`
	Role       string `json:"role"`
}

// Login exchanges the shared operator secret for a JWT pair.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OperatorID == "" || req.Secret == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operator_id and secret required"})
		return
	}
	if req.Secret != h.Cfg.Auth.OperatorSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	role := req.Role
	if role == "" {
		role = auth.RoleOperator
	}
	if role != auth.RoleOperator && role != auth.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.OperatorID, role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls (dashboard read side) ---

func (h Handlers) ListCalls(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	calls, err := h.Calls.RecentCalls(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call listing failed"})
		return
	}
	if calls == nil {
		calls = []intake.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls, "total": len(calls)})
}

func (h Handlers) GetCall(c *gin.Context) {
	callID := c.Param("call_id")
	rec, err := h.Calls.CallByID(c.Request.Context(), callID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call " + callID + " not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("call lookup failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetStats serves aggregates, through the redis cache when configured.
// Cache failures degrade to a direct store query.
func (h Handlers) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	if h.StatsCache != nil {
		if stats, ok := h.StatsCache.Get(ctx); ok {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	stats, err := h.Calls.Stats(ctx)
	if err != nil {
		log.Error("stats query failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats query failed"})
		return
	}

	if h.StatsCache != nil {
		h.StatsCache.Set(ctx, stats)
	}
	c.JSON(http.StatusOK, stats)
}
