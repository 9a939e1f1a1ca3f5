package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

type stubVerifier struct {
	subject string
	err     error
	seen    string
}

func (v *stubVerifier) Verify(token string) (string, error) {
	v.seen = token
	return v.subject, v.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(verifier TokenVerifier) (*gin.Engine, *error) {
	var failure error
	r := gin.New()
	r.Use(Auth(verifier, func(c *gin.Context, err error) {
		failure = err
		c.AbortWithStatus(http.StatusTeapot)
	}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})
	return r, &failure
}

func TestAuth(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		verifier := &stubVerifier{subject: "admin"}
		r, failure := newAuthEngine(verifier)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc.def")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "admin", w.Body.String())
		require.Equal(t, "abc.def", verifier.seen)
		require.NoError(t, *failure)
	})

	t.Run("missing header", func(t *testing.T) {
		r, failure := newAuthEngine(&stubVerifier{})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusTeapot, w.Code)
		require.ErrorIs(t, *failure, models.ErrUnauthorized)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r, failure := newAuthEngine(&stubVerifier{})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic YWRtaW46c2VjcmV0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.ErrorIs(t, *failure, models.ErrUnauthorized)
	})

	t.Run("rejected token", func(t *testing.T) {
		rejected := errors.Join(models.ErrInvalidToken, errors.New("expired"))
		r, failure := newAuthEngine(&stubVerifier{err: rejected})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer stale")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusTeapot, w.Code)
		require.ErrorIs(t, *failure, models.ErrInvalidToken)
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(RequestIDHeader)
		require.Len(t, id, 36)
		require.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		require.Equal(t, "req-42", w.Body.String())
	})
}
