package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
	"food-ordering-api/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Options{
		Secret: "mw-secret", Issuer: "test", AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func newRouter(tokens *token.Service, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.Use(Recover(zap.NewNop()), Logger(zap.NewNop()))
	r.GET("/private", AuthRequired(tokens), RoleRequired(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, auth string) (*httptest.ResponseRecorder, ErrorBody) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body ErrorBody
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthorize(t *testing.T) {
	owner := &token.Claims{Role: models.RoleOwner}

	assert.NoError(t, Authorize(owner))
	assert.NoError(t, Authorize(owner, models.RoleOwner, models.RoleAdmin))
	assert.ErrorIs(t, Authorize(owner, models.RoleCustomer), apperror.Forbidden)
	assert.ErrorIs(t, Authorize(nil, models.RoleCustomer), apperror.Forbidden)
	assert.ErrorIs(t, Authorize(&token.Claims{}), apperror.Forbidden)
}

func TestAuthRequired(t *testing.T) {
	tokens := newTokens(t)
	r := newRouter(tokens, models.RoleCustomer)
	pair, err := tokens.Issue(&models.User{ID: "c-1", Role: models.RoleCustomer})
	require.NoError(t, err)

	w, _ := do(r, "/private", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"c-1","role":"customer"}`, w.Body.String())

	w, body := do(r, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.InvalidToken, body.ErrorKind)

	w, body = do(r, "/private", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.InvalidToken, body.ErrorKind)

	w, _ = do(r, "/private", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleRequired(t *testing.T) {
	tokens := newTokens(t)
	r := newRouter(tokens, models.RoleAdmin)
	pair, err := tokens.Issue(&models.User{ID: "o-1", Role: models.RoleOwner})
	require.NoError(t, err)

	w, body := do(r, "/private", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.Forbidden, body.ErrorKind)
}

func TestRecover(t *testing.T) {
	r := newRouter(newTokens(t))

	w, body := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.Internal, body.ErrorKind)
}
