package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/config"
	"libcirc/internal/platform/db/dbtest"
	"libcirc/internal/platform/logging"
)

type apiClient struct {
	t *testing.T
	h http.Handler
}

func (a apiClient) call(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.h.ServeHTTP(w, req)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func (a apiClient) login(name, password string) string {
	a.t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	code := a.call(http.MethodPost, "/auth/login", "", map[string]string{"user_name": name, "password": password}, &res)
	require.Equal(a.t, http.StatusOK, code)
	return res.Token
}

type errBody struct {
	Error struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func newTestApp(t *testing.T, now *time.Time) (*App, apiClient) {
	t.Helper()
	cfg := &config.Config{
		Mode: "release",
		Auth: config.AuthConfig{JWTSecret: "s3cret", AdminCode: "code", TokenTTL: time.Hour},
	}
	app := NewApp(cfg, dbtest.Open(t), logging.Discard(), ledger.ClockFunc(func() time.Time { return *now }))
	return app, apiClient{t: t, h: app.Router()}
}

func TestHealthz(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, &now)
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSwaggerOnlyInDev(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, &now)
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.Config.Mode = "dev"
	w = httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/copies/{key}/borrow")
	assert.Contains(t, w.Body.String(), "libcirc API")
}

func TestCirculationOverHTTP(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	_, api := newTestApp(t, &now)

	require.Equal(t, http.StatusCreated, api.call(http.MethodPost, "/auth/register", "",
		map[string]any{"user_name": "admin", "password": "pw", "role": "admin", "admin_code": "code"}, nil))
	require.Equal(t, http.StatusCreated, api.call(http.MethodPost, "/auth/register", "",
		map[string]any{"user_name": "alice", "password": "pw"}, nil))
	adminTok := api.login("admin", "pw")
	aliceTok := api.login("alice", "pw")

	// 管理者以外は蔵書を追加できない
	var eb errBody
	code := api.call(http.MethodPost, "/titles", aliceTok, map[string]any{"name": "Dune", "quantity": 1}, &eb)
	assert.Equal(t, http.StatusForbidden, code)

	var added struct {
		TitleID uint64   `json:"title_id"`
		Created bool     `json:"created"`
		Copies  []string `json:"copies"`
	}
	code = api.call(http.MethodPost, "/titles", adminTok, map[string]any{
		"name": "Foundation", "author": "Isaac Asimov", "categories": []string{"Science Fiction"}, "quantity": 2,
	}, &added)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, added.Created)
	require.Len(t, added.Copies, 2)

	var search struct {
		Items []struct {
			Name              string `json:"name"`
			AvailableQuantity int    `json:"available_quantity"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/titles?search_by=author&q=Asimov", "", nil, &search))
	require.Len(t, search.Items, 1)
	assert.Equal(t, 2, search.Items[0].AvailableQuantity)

	// 未ログインでは借りられない
	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodPost, "/copies/"+added.Copies[0]+"/borrow", "", nil, nil))

	var loan struct {
		LoanULID string `json:"loan_ulid"`
		CopyKey  string `json:"copy_key"`
	}
	require.Equal(t, http.StatusCreated, api.call(http.MethodPost, "/copies/"+added.Copies[0]+"/borrow", aliceTok, nil, &loan))
	assert.Equal(t, added.Copies[0], loan.CopyKey)

	eb = errBody{}
	code = api.call(http.MethodPost, "/copies/"+added.Copies[1]+"/borrow", aliceTok, nil, &eb)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "POLICY", eb.Error.Code)
	assert.Equal(t, "duplicate-title", eb.Error.Reason)

	// 貸出中のコピーは削除できない
	eb = errBody{}
	code = api.call(http.MethodDelete, "/copies/"+added.Copies[0], adminTok, nil, &eb)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "CONFLICT", eb.Error.Code)

	var mine struct {
		Items []struct {
			TitleName string `json:"title_name"`
			Status    string `json:"status"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/me/loans", aliceTok, nil, &mine))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Foundation", mine.Items[0].TitleName)
	assert.Equal(t, "borrowed", mine.Items[0].Status)

	now = now.AddDate(0, 0, 20)
	var overdue struct {
		Items []struct {
			Label   string `json:"label"`
			DaysOut int    `json:"days_out"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/reports/overdue", adminTok, nil, &overdue))
	require.Len(t, overdue.Items, 1)
	assert.Equal(t, "OVERDUE", overdue.Items[0].Label)
	assert.Equal(t, 20, overdue.Items[0].DaysOut)

	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/loans/"+loan.LoanULID+"/return", aliceTok, nil, nil))

	var usage struct {
		Items []struct {
			BorrowCount    int      `json:"borrow_count"`
			AvgLoanDays    *float64 `json:"avg_loan_days"`
			AvailableRatio *float64 `json:"available_ratio"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/stats/books", "", nil, &usage))
	require.Len(t, usage.Items, 1)
	assert.Equal(t, 1, usage.Items[0].BorrowCount)
	assert.Equal(t, 20.0, *usage.Items[0].AvgLoanDays)
	assert.Equal(t, 1.0, *usage.Items[0].AvailableRatio)

	assert.Equal(t, http.StatusForbidden, api.call(http.MethodGet, "/stats/users", aliceTok, nil, nil))
	var users struct {
		Items []struct {
			UserName     string `json:"user_name"`
			OverdueCount int    `json:"overdue_count"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/stats/users?period=monthly&ref=2026-10", adminTok, nil, &users))
	require.Len(t, users.Items, 1)
	assert.Equal(t, "alice", users.Items[0].UserName)
	assert.Equal(t, 1, users.Items[0].OverdueCount)

	var changes struct {
		Total int64 `json:"total"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/inventory-changes", adminTok, nil, &changes))
	assert.Equal(t, int64(1), changes.Total)

	// 返却後は削除でき、最後の1冊でタイトルも消える
	for _, k := range added.Copies {
		require.Equal(t, http.StatusOK, api.call(http.MethodDelete, "/copies/"+k, adminTok, nil, nil))
	}
	assert.Equal(t, http.StatusNotFound, api.call(http.MethodGet, fmt.Sprintf("/titles/%d/copies", added.TitleID), "", nil, nil))
}

func TestUnknownRoute(t *testing.T) {
	now := time.Now().UTC()
	_, api := newTestApp(t, &now)
	var eb errBody
	assert.Equal(t, http.StatusNotFound, api.call(http.MethodGet, "/nope", "", nil, &eb))
	assert.Equal(t, "NOT_FOUND", eb.Error.Code)
}

func TestSeed(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	app, api := newTestApp(t, &now)
	require.NoError(t, seed(t.Context(), app))
	// 二回目は何もしない
	require.NoError(t, seed(t.Context(), app))
	var search struct {
		Items []struct {
			TotalQuantity int `json:"total_quantity"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/titles?q=Dune", "", nil, &search))
	require.Len(t, search.Items, 1)
	assert.Equal(t, 3, search.Items[0].TotalQuantity)

	tok := api.login("alice", "alice-password")
	var mine struct {
		Items []any `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/me/loans", tok, nil, &mine))
	assert.Len(t, mine.Items, 2)
}
