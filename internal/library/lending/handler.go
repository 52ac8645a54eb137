package lending

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libcirc/internal/library/copies"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(rt auth.Routes, svc *Service) {
	h := &Handler{svc: svc}

	// 貸出（コピー単位）
	rt.User.POST("/copies/:key/borrow", h.Borrow)

	// 返却
	rt.User.POST("/loans/:key/return", h.Return)
}

func (h *Handler) Borrow(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		apperr.Abort(c, apperr.Unauthorized("login required"))
		return
	}
	k, err := copies.ParseKey(c.Param("key"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	res, err := h.svc.Borrow(c.Request.Context(), actor, k)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.Header("Location", "/loans/"+res.LoanULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Return(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		apperr.Abort(c, apperr.Unauthorized("login required"))
		return
	}
	res, err := h.svc.Return(c.Request.Context(), actor, c.Param("key"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
