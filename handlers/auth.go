package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Phone    string `json:"phone" binding:"max=32"`
	Address  string `json:"address" binding:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone   *string `json:"phone" binding:"omitempty,max=32"`
	Address *string `json:"address" binding:"omitempty,max=255"`
}

// Register creates a new customer account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    user,
	})
}

// Login authenticates a user and returns an access/refresh pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, _, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// UpdateProfile changes the authenticated user's own profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), services.ProfileInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
