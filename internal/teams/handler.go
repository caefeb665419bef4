package teams

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/response"
)

// CreateTeamRequest is the body for POST /admin/events/:id/teams.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest is the body for POST /admin/teams/:id/members.
type AddMemberRequest struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
	Role          string `json:"role" binding:"omitempty,oneof=captain member"`
}

// Handler handles team HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a teams handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /admin/events/:id/teams.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	team := &models.Team{EventID: eventID, Name: req.Name}
	if err := h.repo.Create(c.Request.Context(), team); err != nil {
		h.logger.Error("create team failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.Created(c, team)
}

// ListByEvent handles GET /events/:id/teams.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list teams failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.OK(c, list)
}

// AddMember handles POST /admin/teams/:id/members.
func (h *Handler) AddMember(c *gin.Context) {
	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		response.BadRequest(c, "invalid participant_id")
		return
	}
	role := models.TeamRoleMember
	if req.Role == "captain" {
		role = models.TeamRoleCaptain
	}
	if err := h.repo.AddMember(c.Request.Context(), teamID, participantID, role); err != nil {
		h.logger.Error("add team member failed", zap.Error(err))
		response.Internal(c, "internal error")
		return
	}
	response.OK(c, gin.H{"team_id": teamID, "participant_id": participantID, "role": role})
}
