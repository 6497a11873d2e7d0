package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicmatch/civic-match/internal/auth/constants"
	"github.com/civicmatch/civic-match/internal/auth/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider accepts the single token "good".
type mockProvider struct{}

func (mockProvider) ValidateAccessToken(_ context.Context, token string) (*models.UserInfo, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &models.UserInfo{ID: "user-1", Email: "ada@example.org", Role: "authenticated"}, nil
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer header", "Bearer abc", "", "abc"},
		{"header wins over cookie", "Bearer abc", "def", "abc"},
		{"cookie", "", "def", "def"},
		{"basic ignored", "Basic dXNlcjpwYXNz", "", ""},
		{"none", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/profile", nil)
			if tt.header != "" {
				r.Header.Set(constants.AuthHeaderName, tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: constants.AccessTokenCookie, Value: tt.cookie})
			}
			assert.Equal(t, tt.want, ExtractToken(r))
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	var seen *AuthInfo
	h := OptionalAuthenticate(mockProvider{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: constants.AccessTokenCookie, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestCORSWithOrigins(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("any origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		r.Header.Set("Origin", "https://elsewhere.example")
		CORSWithOrigins(nil)(next).ServeHTTP(rec, r)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		h := CORSWithOrigins([]string{"https://civicmatch.example"})(next)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		r.Header.Set("Origin", "https://civicmatch.example")
		h.ServeHTTP(rec, r)
		assert.Equal(t, "https://civicmatch.example", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = httptest.NewRecorder()
		r.Header.Set("Origin", "https://evil.example")
		h.ServeHTTP(rec, r)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodOptions, "/api/account", nil)
		r.Header.Set("Access-Control-Request-Method", "DELETE")
		CORSWithOrigins(nil)(next).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.DELETE("/account", RequireUser(mockProvider{}), func(c *gin.Context) {
		info := User(c)
		c.JSON(http.StatusOK, gin.H{"user": info.UserID, "ctx": FromContext(c.Request.Context()).UserID})
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/account", nil)
	r.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"user-1","ctx":"user-1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/account", nil)
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized","message":"No authorization token provided","code":"UNAUTHORIZED"}`, rec.Body.String())
}
