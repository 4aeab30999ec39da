package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(seen *string, fromCtx *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		*seen = Value(c)
		*fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewareGeneratesID(t *testing.T) {
	var seen, fromCtx string
	r := newEngine(&seen, &fromCtx)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, fromCtx)
	assert.Equal(t, seen, w.Header().Get(headerKey))
}

func TestMiddlewareFiltersInboundID(t *testing.T) {
	cases := map[string]bool{
		"abc-123":                        true,
		"portal:7f2c":                    true,
		strings.Repeat("x", maxLength+1): false,
		"line\nbreak":                    false,
		"with space":                     false,
	}
	for inbound, kept := range cases {
		var seen, fromCtx string
		r := newEngine(&seen, &fromCtx)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header[headerKey] = []string{inbound}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if kept {
			assert.Equal(t, inbound, w.Header().Get(headerKey))
		} else {
			assert.Len(t, w.Header().Get(headerKey), 36, "inbound %q", inbound)
		}
	}
}

func TestFromContextWithoutID(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}
