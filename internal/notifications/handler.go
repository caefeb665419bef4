package notifications

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/middleware"
	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/response"
)

const listPageSize = 100

// SendNotificationRequest is the body for POST /admin/events/:id/notifications.
type SendNotificationRequest struct {
	Type           string   `json:"type"`
	Title          string   `json:"title" binding:"required"`
	Message        string   `json:"message"`
	Recipients     string   `json:"recipients"` // all | captains | specific
	ParticipantIDs []string `json:"participant_ids"`
	SendEmail      bool     `json:"send_email"`
}

// Handler handles notification HTTP endpoints.
type Handler struct {
	svc    *Service
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(svc *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, logger: logger}
}

// Send handles POST /admin/events/:id/notifications.
func (h *Handler) Send(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid participant id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	result, err := h.svc.Send(c.Request.Context(), SendParams{
		EventID:        eventID,
		Type:           models.NotificationType(req.Type),
		Title:          req.Title,
		Message:        req.Message,
		Mode:           RecipientMode(req.Recipients),
		ParticipantIDs: ids,
		SendEmail:      req.SendEmail,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("notification send failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.Created(c, result)
}

// ListMine handles GET /notifications for the authenticated participant.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByParticipant(c.Request.Context(), userID, listPageSize)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.MarkRead(c.Request.Context(), id, userID); err != nil {
		h.logger.Error("mark read failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.OK(c, gin.H{"id": id, "is_read": true})
}

// ListEmails handles GET /admin/events/:id/notification-emails.
func (h *Handler) ListEmails(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListEmailsByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list notification emails failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.OK(c, list)
}
