package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikeboe/finance-assistant/pkg/chat"
	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/mikeboe/finance-assistant/pkg/knowledge"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

// Pinger checks the knowledge base connection.
type Pinger interface {
	Ping(ctx context.Context) knowledge.Result
}

// pingTTL bounds how often /api/health?probe=true reaches the backend.
const pingTTL = 30 * time.Second

type Handler struct {
	Chat     *chat.Service
	Registry *finance.Registry
	Pinger   Pinger
	Metrics  *metrics.Recorder
	MCP      http.Handler

	pingMu   sync.Mutex
	pingAt   time.Time
	pingLast knowledge.Result
	now      func() time.Time
}

// NewHandler wires the API. chatSvc and pinger may be nil: chat routes then
// answer 503 and the health check skips the knowledge base probe.
func NewHandler(registry *finance.Registry, chatSvc *chat.Service, pinger Pinger, m *metrics.Recorder) *Handler {
	return &Handler{
		Chat:     chatSvc,
		Registry: registry,
		Pinger:   pinger,
		Metrics:  m,
		MCP:      NewMCPHandler(NewMCPServer(registry)),
		now:      time.Now,
	}
}

// NewEngine builds a gin engine with CORS and all routes registered.
func NewEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: false,
	}))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Any("/mcp", gin.WrapH(h.MCP))
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.health)

		api.GET("/tools", h.listTools)
		api.POST("/tools/:name", h.invokeTool)

		// Chat Routes
		api.GET("/chat/suggestions", h.suggestions)
		api.POST("/chat/conversations", h.createConversation)
		api.GET("/chat/conversations", h.listConversations)
		api.GET("/chat/conversations/:id/messages", h.getMessages)
		api.POST("/chat/conversations/:id/messages", h.sendMessage)
		api.DELETE("/chat/conversations/:id/messages", h.clearMessages)
	}
}

// health reports configuration only. With ?probe=true it also pings the
// knowledge base, reusing a result younger than pingTTL.
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{
		"status":   "ok",
		"degraded": h.Registry.Degraded(),
		"chat":     h.Chat != nil,
	}

	switch {
	case h.Registry.Degraded() || h.Pinger == nil:
		resp["knowledge_base"] = "not configured"
	case c.Query("probe") != "true":
		resp["knowledge_base"] = "configured"
	default:
		if res := h.ping(c.Request.Context()); res.Failed() {
			resp["status"] = "degraded"
			resp["knowledge_base"] = "unavailable"
			resp["error"] = res.Error
		} else {
			resp["knowledge_base"] = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ping(ctx context.Context) knowledge.Result {
	h.pingMu.Lock()
	defer h.pingMu.Unlock()

	now := h.now
	if now == nil {
		now = time.Now
	}
	if !h.pingAt.IsZero() && now().Sub(h.pingAt) < pingTTL {
		return h.pingLast
	}
	h.pingLast = h.Pinger.Ping(ctx)
	h.pingAt = now()
	return h.pingLast
}

func (h *Handler) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"degraded": h.Registry.Degraded(),
		"tools":    h.Registry.Specs(),
	})
}

func (h *Handler) invokeTool(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.Registry.Spec(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + name})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.Registry.Invoke(c.Request.Context(), name, body)
	c.JSON(http.StatusOK, gin.H{"tool": name, "result": result})
}

func (h *Handler) suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, chat.Suggestions())
}

func (h *Handler) requireChat(c *gin.Context) bool {
	if h.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not configured"})
		return false
	}
	return true
}

func (h *Handler) createConversation(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}
	conv, err := h.Chat.CreateConversation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) listConversations(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}
	convs, err := h.Chat.ListConversations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) getMessages(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}
	id, ok := conversationID(c)
	if !ok {
		return
	}

	msgs, err := h.Chat.History(c.Request.Context(), id)
	if err != nil {
		chatError(c, err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) sendMessage(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	reply, err := h.Chat.Chat(c.Request.Context(), id, req.Content)
	if err != nil {
		chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": chat.RoleModel, "content": reply})
}

func (h *Handler) clearMessages(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}
	id, ok := conversationID(c)
	if !ok {
		return
	}

	if err := h.Chat.ClearHistory(c.Request.Context(), id); err != nil {
		chatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func conversationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func chatError(c *gin.Context, err error) {
	if errors.Is(err, chat.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
