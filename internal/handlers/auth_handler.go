package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/dto"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/account"
)

type sessionIssuer interface {
	IssueSession(ownerID uint) (string, error)
}

type AuthHandler struct {
	register *account.Register
	login    *account.Login
	tokens   sessionIssuer
	log      *slog.Logger
}

func NewAuthHandler(register *account.Register, login *account.Login, tokens sessionIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{register: register, login: login, tokens: tokens, log: log}
}

// --------- Handlers ---------

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	owner, err := h.register.Execute(c.Request.Context(), account.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Slug:     req.Slug,
		Timezone: req.Timezone,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.respond(c, http.StatusCreated, owner)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	owner, err := h.login.Execute(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.respond(c, http.StatusOK, owner)
}

func (h *AuthHandler) respond(c *gin.Context, status int, owner *models.Owner) {
	token, err := h.tokens.IssueSession(owner.ID)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not issue a session.")
		return
	}

	c.JSON(status, dto.AuthResponse{
		Owner: dto.OwnerDTO{
			ID:       owner.ID,
			Name:     owner.Name,
			Email:    owner.Email,
			Slug:     owner.Slug,
			Timezone: owner.Timezone,
		},
		Token: token,
	})
}
