package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) tokenResponse(c *gin.Context, tok services.Token) {
	response.RespondOK(c, gin.H{
		"access_token": tok.AccessToken,
		"expires_in":   int(ah.authService.GetAccessTTL().Seconds()),
		"role":         tok.Role,
		"session_id":   tok.SessionID,
	})
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": user})
}

// Login reuses the session of a guest token sent along, so the guest's cart
// carries over.
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tok, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	ah.tokenResponse(c, tok)
}

func (ah *AuthHandler) Guest(c *gin.Context) {
	tok, err := ah.authService.Guest(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	ah.tokenResponse(c, tok)
}

func (ah *AuthHandler) Me(c *gin.Context) {
	me, err := ah.authService.Me(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, me)
}
