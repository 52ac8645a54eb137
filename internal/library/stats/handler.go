package stats

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

type Handler struct{ svc *Aggregator }

func RegisterRoutes(rt auth.Routes, svc *Aggregator) {
	h := &Handler{svc: svc}

	rt.Public.GET("/stats/books", h.BookUsage)
	rt.Public.GET("/stats/popular", h.Popular)

	// 利用者ごとの統計は管理者のみ
	rt.Admin.GET("/stats/users", h.UserBorrow)
}

// 画面表示のたびに再集計する（?refresh=false で直近のスナップショットを返す）
func refreshWanted(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("refresh", "true"))
	return err != nil || v
}

func (h *Handler) BookUsage(c *gin.Context) {
	res, err := h.svc.BookUsage(c.Request.Context(), refreshWanted(c))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) UserBorrow(c *gin.Context) {
	p := PeriodFor(c.DefaultQuery("period", string(Monthly)), c.Query("ref"), h.svc.clock.Now())
	res, err := h.svc.UserBorrow(c.Request.Context(), p, refreshWanted(c))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Popular(c *gin.Context) {
	var categoryID uint64
	if v := c.Query("category_id"); v != "" {
		// 不正値は未指定扱い
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			categoryID = id
		}
	}
	res, err := h.svc.Popular(c.Request.Context(), categoryID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
