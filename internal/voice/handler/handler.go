package handler

import (
	"net/http"

	"outreach_backend/internal/voice/service"
	"outreach_backend/internal/voice/transport"
	"outreach_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the telephony webhook endpoints. Every endpoint answers
// 200 with a TwiML document; the provider treats anything else as a dead
// line for the caller.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/outbound", h.Outbound)
	rg.POST("/inbound", h.Inbound)
	rg.POST("/continue", h.Continue)
	rg.POST("/status", h.Status)
}

func sessionParam(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.Query("session"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (h *Handler) Outbound(c *gin.Context) {
	form := transport.ParseVoiceWebhook(c)
	doc := h.svc.AnswerOutbound(c.Request.Context(), sessionParam(c), form)
	httpkit.XML(c, doc)
}

func (h *Handler) Inbound(c *gin.Context) {
	form := transport.ParseVoiceWebhook(c)
	doc := h.svc.AcceptInbound(c.Request.Context(), form)
	httpkit.XML(c, doc)
}

func (h *Handler) Continue(c *gin.Context) {
	form := transport.ParseVoiceWebhook(c)
	doc := h.svc.Continue(c.Request.Context(), sessionParam(c), form)
	httpkit.XML(c, doc)
}

// Status is a fire-and-forget callback; the provider ignores the body.
func (h *Handler) Status(c *gin.Context) {
	form := transport.ParseVoiceWebhook(c)
	h.svc.HandleStatus(c.Request.Context(), sessionParam(c), form)
	c.Status(http.StatusNoContent)
}
