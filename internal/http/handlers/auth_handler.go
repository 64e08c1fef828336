package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers/common"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authResponse struct {
	UserID       string        `json:"user_id"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"display_name"`
	Role         string        `json:"role"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

func toAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		UserID:       res.User.ID.String(),
		Email:        res.User.Email,
		DisplayName:  res.User.DisplayName,
		Role:         res.User.Role,
		AccessToken:  res.TokenPair.AccessToken,
		RefreshToken: res.TokenPair.RefreshToken,
		ExpiresIn:    res.TokenPair.ExpiresIn,
	}
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string  `json:"email" binding:"required"`
		Password    string  `json:"password" binding:"required"`
		DisplayName string  `json:"display_name" binding:"required"`
		Role        string  `json:"role"`
		Parish      *string `json:"parish"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "email, password и display_name обязательны")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Parish:      req.Parish,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			common.RespondError(c, http.StatusConflict, "email уже зарегистрирован")
			return
		}
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(result))
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "email и password обязательны")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondUnauthorized(c, "неверные учетные данные")
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

// Refresh POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "refresh_token обязателен")
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondUnauthorized(c, "токен невалиден")
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}
