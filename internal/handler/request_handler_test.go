package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newJSONContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestRequestHandlerSubmitRejectsBadBody(t *testing.T) {
	handler := NewRequestHandler(nil)
	c, w := newJSONContext(t, http.MethodPost, "/requests", `{"teacher_id":`)

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerSubmitRequiresTeacherID(t *testing.T) {
	handler := NewRequestHandler(nil)
	c, w := newJSONContext(t, http.MethodPost, "/requests", `{}`)

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerRespondRejectsBadBody(t *testing.T) {
	handler := NewRequestHandler(nil)
	c, w := newJSONContext(t, http.MethodPut, "/requests/r1", `{"status":}`)

	handler.Respond(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerRespondRequiresRequestID(t *testing.T) {
	handler := NewRequestHandler(nil)
	c, w := newJSONContext(t, http.MethodPost, "/requests/respond", `{"status":"ACCEPTED"}`)

	handler.Respond(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
