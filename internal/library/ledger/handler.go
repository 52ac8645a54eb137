package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

type Handler struct{ svc *Ledger }

func RegisterRoutes(rt auth.Routes, svc *Ledger) {
	h := &Handler{svc: svc}

	// 貸出履歴（本人）
	rt.User.GET("/me/loans", h.MyLoans)

	// 管理者向け
	rt.Admin.GET("/inventory-changes", h.ListChanges)
	rt.Admin.GET("/reports/overdue", h.OverdueReport)
	rt.Admin.GET("/titles/:id/loans", h.TitleLoans)
}

// ---------- handlers ----------

func (h *Handler) MyLoans(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		apperr.Abort(c, apperr.Unauthorized("login required"))
		return
	}
	res, err := h.svc.History(c.Request.Context(), actor.UserID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) ListChanges(c *gin.Context) {
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	res, err := h.svc.ListChanges(c.Request.Context(), p)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) OverdueReport(c *gin.Context) {
	res, err := h.svc.OverdueReport(c.Request.Context())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

// GET /titles/:id/loans?from=2026-09-01&to=2026-10-01
// to は含まない。省略時は from=先頭, to=現在
func (h *Handler) TitleLoans(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid title id"))
		return
	}
	from, ok := parseTimeParam(c.Query("from"), time.Unix(0, 0).UTC())
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid from"))
		return
	}
	to, ok := parseTimeParam(c.Query("to"), h.svc.Now().Add(time.Second))
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeValidation, "invalid to"))
		return
	}
	res, err := h.svc.TitleLoans(c.Request.Context(), id, from, to)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

// ---------- helpers ----------

// parseTimeParam accepts YYYY-MM-DD (UTC midnight) or RFC 3339.
func parseTimeParam(s string, d time.Time) (time.Time, bool) {
	if s == "" {
		return d, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
