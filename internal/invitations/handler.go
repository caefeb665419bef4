package invitations

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/middleware"
	"github.com/teamrally/backend/pkg/response"
)

// CreateInvitationRequest is the body for POST /admin/event-invitations.
type CreateInvitationRequest struct {
	EventID     string  `json:"event_id" binding:"required,uuid"`
	Description string  `json:"description"`
	MaxUses     *int    `json:"max_uses"`
	ExpiresAt   *string `json:"expires_at"`
}

// UpdateInvitationRequest is the body for PUT /admin/event-invitations/:id.
// Constraint fields are replaced wholesale; omitted fields clear constraints.
type UpdateInvitationRequest struct {
	Description string  `json:"description"`
	MaxUses     *int    `json:"max_uses"`
	ExpiresAt   *string `json:"expires_at"`
}

// RedeemRequest is the body for POST /public/register-with-invitation.
type RedeemRequest struct {
	InvitationToken string `json:"invitation_token" binding:"required"`
	Username        string `json:"username" binding:"required,min=3"`
	Password        string `json:"password" binding:"required,min=6"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
}

// Handler handles invitation HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// respondError maps service errors onto the response envelope. The three
// terminal states get distinct messages so the UI can tell "expired" from
// "limit reached" from "deactivated".
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "invalid invitation link")
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrInactive):
		response.Gone(c, "this invitation link is no longer active")
	case errors.Is(err, ErrExpired):
		response.Gone(c, "this invitation link has expired")
	case errors.Is(err, ErrExhausted):
		response.Gone(c, "this invitation link has reached its maximum usage limit")
	default:
		h.logger.Error("invitation request failed", zap.Error(err))
		response.Internal(c, "internal error")
	}
}

func parseExpiry(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create handles POST /admin/event-invitations.
func (h *Handler) Create(c *gin.Context) {
	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid event_id")
		return
	}
	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		response.BadRequest(c, "invalid expires_at")
		return
	}

	inv, err := h.svc.Create(c.Request.Context(), CreateParams{
		EventID:     eventID,
		Description: req.Description,
		MaxUses:     req.MaxUses,
		ExpiresAt:   expiresAt,
		CreatedBy:   c.MustGet(middleware.ContextUserID).(uuid.UUID),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, inv)
}

// Update handles PUT /admin/event-invitations/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}
	var req UpdateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		response.BadRequest(c, "invalid expires_at")
		return
	}

	inv, err := h.svc.Update(c.Request.Context(), id, UpdateParams{
		Description: req.Description,
		MaxUses:     req.MaxUses,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, inv)
}

// Activate handles POST /admin/event-invitations/:id/activate.
func (h *Handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate handles POST /admin/event-invitations/:id/deactivate.
func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}
	var svcErr error
	if active {
		svcErr = h.svc.Activate(c.Request.Context(), id)
	} else {
		svcErr = h.svc.Deactivate(c.Request.Context(), id)
	}
	if svcErr != nil {
		h.respondError(c, svcErr)
		return
	}
	response.OK(c, gin.H{"id": id, "is_active": active})
}

// Delete handles DELETE /admin/event-invitations/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	response.NoContent(c)
}

// ListByEvent handles GET /admin/events/:id/invitations.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, list)
}

// Stats handles GET /admin/events/:id/invitation-stats.
func (h *Handler) Stats(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	stats, err := h.svc.ComputeEventStats(c.Request.Context(), eventID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, stats)
}

// Usages handles GET /admin/event-invitations/:id/usages.
func (h *Handler) Usages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}
	usages, err := h.svc.Usages(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, usages)
}

// GetByToken handles GET /public/invitation/:token. Landing-page lookup,
// read-only, no quota consumption.
func (h *Handler) GetByToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.BadRequest(c, "token required")
		return
	}
	inv, err := h.svc.GetByToken(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, inv)
}

// Redeem handles POST /public/register-with-invitation. Unauthenticated by
// design: this is how outsiders join.
func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.svc.Redeem(c.Request.Context(), req.InvitationToken,
		RegistrationRequest{
			Username: req.Username,
			Password: req.Password,
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
		},
		UsageMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, result)
}
