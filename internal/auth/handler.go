package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/internal/participants"
	"github.com/teamrally/backend/pkg/response"
	"github.com/teamrally/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string                   `json:"token"`
	User  models.ParticipantPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *participants.Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *participants.Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Unauthorized(c, "invalid username or password")
		return
	}
	if !utils.CheckPassword(req.Password, p.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(p.ID, p.Username, string(p.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: p.ToPublic()})
}

// Register handles POST /auth/register. New accounts always get the user role.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	p := &models.Participant{
		Username: req.Username,
		Password: hash,
		Name:     req.Name,
		Role:     models.RoleUser,
	}
	if req.Email != "" {
		p.Email = &req.Email
	}
	if req.Phone != "" {
		p.Phone = &req.Phone
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		if errors.Is(err, participants.ErrUsernameTaken) {
			response.Conflict(c, "username already exists")
			return
		}
		h.logger.Error("create participant failed", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}

	token, err := h.jwt.Generate(p.ID, p.Username, string(p.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: p.ToPublic()})
}

// List handles GET /admin/participants.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, list)
}
