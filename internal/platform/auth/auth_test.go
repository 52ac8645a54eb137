package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/db"
	"libcirc/internal/platform/db/dbtest"
)

var secret = []byte("test-secret")

type fakeCounter struct{ open map[uint64]int }

func (f fakeCounter) CountOpenLoans(_ context.Context, _ db.DBTX, id uint64) (int, error) {
	return f.open[id], nil
}

func newTestService(t *testing.T, open map[uint64]int) *Service {
	t.Helper()
	return NewService(dbtest.Open(t), fakeCounter{open: open}, Options{
		JWTSecret: secret,
		AdminCode: "letmein",
		TokenTTL:  time.Hour,
	})
}

func ptr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()

	id, err := s.Register(ctx, RegisterRequest{UserName: " alice ", Password: "pw"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = s.Register(ctx, RegisterRequest{UserName: "alice", Password: "other"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	tok, err := s.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	actor, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, Actor{UserID: id, Name: "alice", Role: RoleUser}, actor)

	_, err = s.Login(ctx, "alice", "wrong")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
	_, err = s.Login(ctx, "nobody", "pw")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestRegisterAdminNeedsCode(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterRequest{UserName: "root", Password: "pw", Role: ptr(RoleAdmin), AdminCode: "nope"})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = s.Register(ctx, RegisterRequest{UserName: "root", Password: "pw", Role: ptr("librarian")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = s.Register(ctx, RegisterRequest{UserName: "root", Password: "pw", Role: ptr(RoleAdmin), AdminCode: "letmein"})
	require.NoError(t, err)
	tok, err := s.Login(ctx, "root", "pw")
	require.NoError(t, err)
	actor, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, map[uint64]int{1: 2})

	busy, err := s.Register(ctx, RegisterRequest{UserName: "busy", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), busy)
	idle, err := s.Register(ctx, RegisterRequest{UserName: "idle", Password: "pw"})
	require.NoError(t, err)

	err = s.Delete(ctx, busy)
	assert.Equal(t, apperr.ReasonOpenLoans, apperr.ReasonOf(err))

	require.NoError(t, s.Delete(ctx, idle))
	err = s.Delete(ctx, idle)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestParseTokenRejects(t *testing.T) {
	s := newTestService(t, nil)
	good, err := s.IssueToken(Actor{UserID: 7, Name: "x", Role: RoleUser})
	require.NoError(t, err)

	_, err = ParseToken([]byte("other"), good)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := s.IssueToken(Actor{UserID: 7, Role: RoleUser})
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "7"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(secret, unsigned)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func newRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(Routes{
		Public: r,
		User:   r.Group("", RequireAuth(secret)),
		Admin:  r.Group("", RequireAuth(secret), RequireRole(RoleAdmin)),
	}, s)
	r.Group("", RequireAuth(secret)).GET("/whoami", func(c *gin.Context) {
		a, _ := ActorFrom(c)
		c.JSON(http.StatusOK, a)
	})
	return r
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t, nil)
	r := newRouter(s)

	w := do(r, http.MethodGet, "/whoami", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)

	w = do(r, http.MethodGet, "/whoami", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userTok, err := s.IssueToken(Actor{UserID: 3, Name: "alice", Role: RoleUser})
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/whoami", userTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got Actor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint64(3), got.UserID)

	// admin 専用ルート
	w = do(r, http.MethodDelete, "/auth/accounts/3", userTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlers(t *testing.T) {
	s := newTestService(t, nil)
	r := newRouter(s)

	w := do(r, http.MethodPost, "/auth/register", "", `{"user_name":"bob","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/auth/register", "", `{"user_name":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/auth/login", "", `{"user_name":"bob","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)

	w = do(r, http.MethodPost, "/auth/login", "", `{"user_name":"bob","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminTok, err := s.IssueToken(Actor{UserID: 99, Name: "root", Role: RoleAdmin})
	require.NoError(t, err)
	w = do(r, http.MethodDelete, "/auth/accounts/1", adminTok, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodDelete, "/auth/accounts/1", adminTok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodDelete, "/auth/accounts/x", adminTok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
