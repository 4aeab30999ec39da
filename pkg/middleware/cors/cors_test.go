package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(handler gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler)
	r.GET("/api/v1/home", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/api/v1/home", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExplicitOriginGetsCredentials(t *testing.T) {
	mw := New([]string{"https://council.example/"})

	w := serve(mw, http.MethodGet, "https://council.example")
	assert.Equal(t, "https://council.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	w = serve(mw, http.MethodGet, "https://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWildcardSubdomain(t *testing.T) {
	mw := New([]string{"https://*.council.example"})

	w := serve(mw, http.MethodGet, "https://admin.council.example")
	assert.Equal(t, "https://admin.council.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(mw, http.MethodGet, "http://admin.council.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenPolicyOmitsCredentials(t *testing.T) {
	w := serve(New(nil), http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(New([]string{"*"}), http.MethodGet, "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	mw := WithOptions(Options{AllowedOrigins: []string{"https://council.example"}, ExtraHeaders: []string{"X-Draft-Version"}})

	w := serve(mw, http.MethodOptions, "https://council.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Confirm-Delete")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Draft-Version")
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	w = serve(mw, http.MethodOptions, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
