package api

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmacree/healthtext/internal/router"
	"github.com/tmacree/healthtext/internal/types"
)

// WebhookHandler receives inbound messages and replies through the
// command router. Twilio posts form-encoded webhooks and expects TwiML
// back; the JSON endpoint exists for local testing and other gateways.
type WebhookHandler struct {
	router *router.Router
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(r *router.Router) *WebhookHandler {
	return &WebhookHandler{router: r}
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook/twilio", h.TwilioWebhook)
	rg.POST("/messages", h.PostMessage)
}

// twimlResponse is the minimal TwiML reply envelope.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwilioWebhook handles an inbound Twilio SMS/WhatsApp webhook.
// Twilio uses MessageSid as its delivery identifier; retries of the
// same message carry the same SID, which keeps meal logging idempotent.
func (h *WebhookHandler) TwilioWebhook(c *gin.Context) {
	body := c.PostForm("Body")
	from := c.PostForm("From")
	sid := c.PostForm("MessageSid")
	if body == "" || from == "" {
		c.String(http.StatusBadRequest, "missing Body or From")
		return
	}

	channel := "sms"
	if len(from) > 9 && from[:9] == "whatsapp:" {
		channel = "whatsapp"
	}

	msg := types.InboundMessage{
		Text:        body,
		Sender:      from,
		TimestampMs: time.Now().UnixMilli(),
		DeliveryKey: sid,
		Channel:     channel,
	}

	reply := h.router.HandleMessage(c.Request.Context(), msg)
	c.XML(http.StatusOK, twimlResponse{Message: reply})
}

// messageRequest is the JSON test-post shape.
type messageRequest struct {
	Text        string `json:"text" binding:"required"`
	Sender      string `json:"sender"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// PostMessage handles a JSON message post and returns the reply as JSON.
func (h *WebhookHandler) PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if req.TimestampMs == 0 {
		req.TimestampMs = time.Now().UnixMilli()
	}

	msg := types.InboundMessage{
		Text:        req.Text,
		Sender:      req.Sender,
		TimestampMs: req.TimestampMs,
		Channel:     "api",
	}

	reply := h.router.HandleMessage(c.Request.Context(), msg)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
