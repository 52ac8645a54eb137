package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(rt auth.Routes, svc *Service) {
	h := &Handler{svc: svc}

	// 蔵書検索
	rt.Public.GET("/titles", h.Search)
	rt.Public.GET("/categories", h.ListCategories)

	// 管理者のみ
	rt.Admin.POST("/titles", h.AddTitle)
	rt.Admin.DELETE("/categories/:id", h.DeleteCategory)
}

func (h *Handler) Search(c *gin.Context) {
	q := SearchQuery{
		By:    c.DefaultQuery("search_by", SearchByTitle),
		Q:     c.Query("q"),
		Sort:  c.DefaultQuery("sort_by", SortName),
		Order: c.DefaultQuery("sort_order", OrderAsc),
	}
	res, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddTitle(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req AddTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.AddTitle(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.Header("Location", "/titles/"+strconv.FormatUint(res.TitleID, 10)+"/copies")
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListCategories(c *gin.Context) {
	res, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	if res == nil {
		res = []Category{}
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid category id"))
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
