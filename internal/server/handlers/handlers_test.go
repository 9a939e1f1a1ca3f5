package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/inventory/internal/domain/models"
	whatsappclient "github.com/mamadbah2/inventory/pkg/clients/whatsapp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", models.NewValidationError("price", "is required"), http.StatusBadRequest, KindValidation},
		{"insufficient stock", fmt.Errorf("apply: %w", &models.InsufficientStockError{Product: "rice", Available: 1, Requested: 2}), http.StatusConflict, KindInsufficientStock},
		{"not found", fmt.Errorf("item %q: %w", "x", models.ErrNotFound), http.StatusNotFound, KindNotFound},
		{"conflict", models.ErrConflict, http.StatusConflict, KindConflict},
		{"missing credentials", models.ErrUnauthorized, http.StatusUnauthorized, KindAuth},
		{"bad credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, KindAuth},
		{"bad token", fmt.Errorf("token expired: %w", models.ErrInvalidToken), http.StatusForbidden, KindAuth},
		{"storage", models.StorageError("find items", errors.New("connection reset")), http.StatusInternalServerError, KindStorage},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classify(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.kind, body.Kind)
		})
	}
}

func TestClassifyHidesStorageCause(t *testing.T) {
	_, body := classify(models.StorageError("find items", errors.New("auth failed for user root")))
	require.NotContains(t, body.Error, "root")
	require.Nil(t, body.Details)
}

type fakeMessenger struct {
	err  error
	sent []models.OutboundMessageRequest
}

func (m *fakeMessenger) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	m.sent = append(m.sent, req)
	return m.err
}

func (m *fakeMessenger) SendAlert(context.Context, models.AlertRequest) error {
	return m.err
}

func sendMessage(h *NotificationHandler, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/send-message", h.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		messenger := &fakeMessenger{}
		w := sendMessage(NewNotificationHandler(messenger, nil), `{"to":"221770000000","message":"Low stock: rice"}`)

		require.Equal(t, http.StatusAccepted, w.Code)
		require.Equal(t, []models.OutboundMessageRequest{{To: "221770000000", Message: "Low stock: rice"}}, messenger.sent)
	})

	t.Run("missing recipient", func(t *testing.T) {
		messenger := &fakeMessenger{}
		w := sendMessage(NewNotificationHandler(messenger, nil), `{"message":"hi"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Empty(t, messenger.sent)
	})

	t.Run("recipient is not a phone number", func(t *testing.T) {
		err := fmt.Errorf("%w: recipient %q is not a phone number", whatsappclient.ErrInvalidMessage, "ops")
		w := sendMessage(NewNotificationHandler(&fakeMessenger{err: err}, nil), `{"to":"ops","message":"hi"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), KindValidation)
	})

	t.Run("upstream failure", func(t *testing.T) {
		w := sendMessage(NewNotificationHandler(&fakeMessenger{err: errors.New("503 from graph api")}, nil), `{"to":"1","message":"hi"}`)

		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Contains(t, w.Body.String(), KindUpstream)
	})
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("no primary") }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/up", NewHealthHandler(nil, nil).Check)
	r.GET("/down", NewHealthHandler(failingPinger{}, nil).Check)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/up", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
