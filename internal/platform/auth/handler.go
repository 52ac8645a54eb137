package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libcirc/internal/platform/apperr"
)

type AuthHandler struct{ svc AuthService }

// Routes splits the router by required privilege.
type Routes struct {
	Public gin.IRoutes
	User   gin.IRoutes // RequireAuth
	Admin  gin.IRoutes // RequireAuth + RequireRole(admin)
}

func RegisterRoutes(rt Routes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	rt.Public.POST("/auth/login", h.Login)
	rt.Public.POST("/auth/register", h.Register)
	rt.Admin.DELETE("/auth/accounts/:id", h.DeleteAccount)
}

type LoginRequest struct {
	UserName string `json:"user_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid json"))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.UserName, req.Password)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Login successful",
	})
}

type RegisterRequest struct {
	UserName  string  `json:"user_name" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	Role      *string `json:"role,omitempty"` // 未指定なら user
	AdminCode string  `json:"admin_code,omitempty"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid json"))
		return
	}

	id, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": id, "message": "registered"})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid account id"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
