package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*models.JWTClaims, error) {
	return s.claims, s.err
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.Any("/target", handlers...)
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1"}}))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/target", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/target", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="council-portal"`, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/target", nil)
	req.Header.Set("Authorization", "Bearer   ")
	rec = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAndRolesAllowAdmin(t *testing.T) {
	router := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))

	req := httptest.NewRequest(http.MethodGet, "/target", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serve(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	router := newRouter(JWT(stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}))

	req := httptest.NewRequest(http.MethodGet, "/target", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	router := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: "VIEWER"}}), RequireRoles(models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/target", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serve(router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(newRouter(RequireRoles(models.RoleAdmin)), httptest.NewRequest(http.MethodGet, "/target", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireConfirmation(t *testing.T) {
	reached := false
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.DELETE("/target", RequireConfirmation(), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNoContent)
	})

	rec := serve(router, httptest.NewRequest(http.MethodDelete, "/target", nil))
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, errorCode(t, rec))
	assert.False(t, reached)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/target?confirm=false", nil))
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.False(t, reached)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/target?confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)

	reached = false
	req := httptest.NewRequest(http.MethodDelete, "/target", nil)
	req.Header.Set(ConfirmHeader, "1")
	rec = serve(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	audit := &recordingAudit{}
	router := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}), Audit(audit, models.AuditActionRosterExport, "members"))

	req := httptest.NewRequest(http.MethodGet, "/target?format=pdf", nil)
	req.Header.Set("Authorization", "Bearer token")
	serve(router, req)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRosterExport, audit.logs[0].Action)
	assert.Equal(t, "u1", *audit.logs[0].UserID)
	assert.Contains(t, string(audit.logs[0].NewValues), "format=pdf")
}

func TestAuditCapturesResourceIDAndSkipsFailures(t *testing.T) {
	audit := &recordingAudit{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.DELETE("/notices/:id", Audit(audit, models.AuditActionContentDelete, "notices"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	serve(router, httptest.NewRequest(http.MethodDelete, "/notices/missing", nil))
	assert.Empty(t, audit.logs)

	serve(router, httptest.NewRequest(http.MethodDelete, "/notices/n-7", nil))
	require.Len(t, audit.logs, 1)
	require.NotNil(t, audit.logs[0].ResourceID)
	assert.Equal(t, "n-7", *audit.logs[0].ResourceID)
	assert.Nil(t, audit.logs[0].UserID)
	assert.Contains(t, string(audit.logs[0].NewValues), `"route":"/notices/:id"`)
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/target", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/target", nil))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "request_id")
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var meta map[string]interface{}
	router.GET("/target", func(c *gin.Context) {
		SetCacheHit(c, false)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/target", nil))
	assert.Nil(t, meta)
}
