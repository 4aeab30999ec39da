package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

// ConfirmHeader carries an explicit delete confirmation.
const ConfirmHeader = "X-Confirm-Delete"

// RequireConfirmation stops irreversible requests unless ?confirm=true or the
// confirmation header is set.
func RequireConfirmation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if confirmed(c.Query("confirm")) || confirmed(c.GetHeader(ConfirmHeader)) {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrConfirmationRequired)
		c.Abort()
	}
}

func confirmed(raw string) bool {
	ok, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && ok
}
