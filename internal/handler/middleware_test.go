package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/pkg/response"
)

type stubVerifier struct {
	user *domain.User
}

func (v *stubVerifier) Verify(_ context.Context, token string) (*domain.User, error) {
	if v.user != nil && token == "valid-token" {
		return v.user, nil
	}
	return nil, errors.New("invalid token")
}

func newAuthedRouter(v *stubVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", AuthMiddleware(v), func(c *gin.Context) {
		response.Success(c, gin.H{"user_id": currentUser(c).ID})
	})
	return engine
}

func TestAuthMiddlewareAcceptsValidBearer(t *testing.T) {
	engine := newAuthedRouter(&stubVerifier{user: &domain.User{ID: "u1", Username: "alice"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"u1"`)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	engine := newAuthedRouter(&stubVerifier{user: &domain.User{ID: "u1"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	engine := newAuthedRouter(&stubVerifier{user: &domain.User{ID: "u1"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsNonBearerScheme(t *testing.T) {
	engine := newAuthedRouter(&stubVerifier{user: &domain.User{ID: "u1"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
