package copies

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

type Handler struct{ svc *Registry }

func RegisterRoutes(rt auth.Routes, svc *Registry) {
	h := &Handler{svc: svc}

	rt.Public.GET("/titles/:id/copies", h.ListCopies)

	// 管理者のみ
	rt.Admin.POST("/titles/:id/copies", h.AddCopies)
	rt.Admin.DELETE("/copies/:key", h.RemoveCopy)
}

func (h *Handler) ListCopies(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid title id"))
		return
	}
	res, err := h.svc.ListCopies(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddCopies(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid title id"))
		return
	}
	var req AddCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.AddCopies(c.Request.Context(), actor, id, req.Quantity)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) RemoveCopy(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	k, err := ParseKey(c.Param("key"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	res, err := h.svc.RemoveCopy(c.Request.Context(), actor, k)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, RemoveCopyResponse{Key: k.String(), TitleDeleted: res.TitleDeleted, Remaining: res.Remaining})
}
