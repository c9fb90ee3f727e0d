package handler

import (
	"context"
	"net/http"

	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/service"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Syncer pulls fresh leads from the advertising channels on demand.
// Implemented by the channels module.
type Syncer interface {
	Sync(ctx context.Context, channels []string) []transport.SyncChannelResult
}

type Handler struct {
	svc    *service.Service
	val    *validator.Validator
	syncer Syncer
}

func New(svc *service.Service, val *validator.Validator, syncer Syncer) *Handler {
	return &Handler{svc: svc, val: val, syncer: syncer}
}

// SetSyncer wires the channel syncer in after construction. The syncer needs
// the lead resolver, which this handler's module owns.
func (h *Handler) SetSyncer(s Syncer) {
	h.syncer = s
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/summary", h.Summary)
	rg.POST("/sync", h.Sync)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
}

// RegisterCallRoutes mounts the operator-triggered dialing endpoint.
func (h *Handler) RegisterCallRoutes(rg *gin.RouterGroup) {
	rg.POST("/outbound", h.Outbound)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, created, err := h.svc.Resolve(c.Request.Context(), service.NormalizedLeadInput{
		Source:        req.Source,
		SourceID:      req.SourceID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Email:         req.Email,
		City:          req.City,
		StudentGrade:  req.StudentGrade,
		PreferredExam: req.PreferredExam,
		GuardianName:  req.GuardianName,
		StudentName:   req.StudentName,
	})
	if err != nil {
		if err == service.ErrInvalidPhone {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, transport.ResolveLeadResponse{
		Lead:    service.ToLeadResponse(lead),
		Created: created,
	})
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{}
	if v := c.Query("status"); v != "" {
		params.Status = &v
	}
	if v := c.Query("source"); v != "" {
		params.Source = &v
	}

	leads, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, service.ToLeadResponse(lead))
	}
	httpkit.OK(c, transport.ListLeadsResponse{Leads: out, Total: total})
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	httpkit.OK(c, summary)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if err == service.ErrLeadNotFound {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	httpkit.OK(c, service.ToLeadResponse(lead))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if err == service.ErrLeadNotFound {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	httpkit.OK(c, service.ToLeadResponse(lead))
}

func (h *Handler) Sync(c *gin.Context) {
	if h.syncer == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "no sync channels configured", nil)
		return
	}

	var req transport.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	results := h.syncer.Sync(c.Request.Context(), req.Channels)
	httpkit.OK(c, transport.SyncResponse{Results: results})
}

func (h *Handler) Outbound(c *gin.Context) {
	var req transport.OutboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if req.LeadID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "leadId is required")
		return
	}

	callSID, err := h.svc.TriggerOutbound(c.Request.Context(), req.LeadID)
	if err != nil {
		if err == service.ErrLeadNotFound {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"callSid": callSID, "leadId": req.LeadID})
}
