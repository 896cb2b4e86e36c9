package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func performRequest(inboundID string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inboundID != "" {
		req.Header.Set("X-Request-ID", inboundID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddlewareKeepsWellFormedInboundID(t *testing.T) {
	w, seen := performRequest("client-trace_01")
	assert.Equal(t, "client-trace_01", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "client-trace_01", seen)
}

func TestMiddlewareReplacesMalformedInboundID(t *testing.T) {
	w, seen := performRequest("bad id\nwith newline")
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.NotContains(t, generated, "\n")
	assert.Equal(t, generated, seen)
}

func TestMiddlewareGeneratesIDWhenMissing(t *testing.T) {
	w, seen := performRequest("")
	assert.Len(t, w.Header().Get("X-Request-ID"), 32)
	assert.Equal(t, w.Header().Get("X-Request-ID"), seen)
}
