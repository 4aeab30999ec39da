package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/middleware"
	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

// bindJSON decodes the request body into dst. On failure it writes a 400 with
// per-field details and returns false.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Validation(err, message))
		return false
	}
	return true
}

// requireClaims returns the verified token claims or writes a 401.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func clientMeta(c *gin.Context) models.ClientMeta {
	return models.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func actorFromContext(c *gin.Context) service.Actor {
	meta := clientMeta(c)
	actor := service.Actor{IPAddress: meta.IP, UserAgent: meta.UserAgent}
	if claims := middleware.Claims(c); claims != nil {
		actor.UserID = claims.UserID
	}
	return actor
}

// cacheMeta marks whether a public payload came from cache.
func cacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	return middleware.ExtractMeta(c)
}
