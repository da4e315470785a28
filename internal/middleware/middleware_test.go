package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/health-triage-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubUserStore struct {
	users map[int64]*domain.User
	err   error
}

func (s *stubUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *stubUserStore) UpdateProfile(_ context.Context, _ int64, _ *domain.PartialProfile) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (s *stubUserStore) ListNonAdmins(_ context.Context) ([]*domain.User, error) {
	return nil, nil
}

func (s *stubUserStore) CountAll(_ context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func identityRouter(store *stubUserStore, admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity(store, testLogger()))

	handler := func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	}

	if admin {
		router.GET("/probe", RequireAdmin(), handler)
	} else {
		router.GET("/probe", handler)
	}
	return router
}

func TestIdentity(t *testing.T) {
	store := &stubUserStore{users: map[int64]*domain.User{
		1: {ID: 1, Email: "user@example.com", IsActive: true},
		2: {ID: 2, Email: "gone@example.com", IsActive: false},
	}}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid active user", "1", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"non-numeric header", "abc", http.StatusUnauthorized},
		{"negative id", "-4", http.StatusUnauthorized},
		{"unknown user", "99", http.StatusUnauthorized},
		{"inactive user", "2", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := identityRouter(store, false)

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestIdentity_StoreFailure(t *testing.T) {
	store := &stubUserStore{err: assert.AnError}
	router := identityRouter(store, false)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	store := &stubUserStore{users: map[int64]*domain.User{
		1: {ID: 1, Email: "user@example.com", IsActive: true},
		2: {ID: 2, Email: "admin@example.com", IsActive: true, IsAdmin: true},
	}}

	tests := []struct {
		name   string
		userID string
		status int
	}{
		{"admin passes", "2", http.StatusOK},
		{"regular user forbidden", "1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := identityRouter(store, true)

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			req.Header.Set("X-User-ID", tt.userID)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("correlation_id"))
	})

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
		assert.Equal(t, w.Header().Get("X-Correlation-ID"), w.Body.String())
	})

	t.Run("preserves incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get("X-Correlation-ID"))
	})
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin gets no header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
