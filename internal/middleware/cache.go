package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

type responseMeta struct {
	start  time.Time
	values map[string]interface{}
}

// WithResponseMeta starts the per-request meta block echoed in response envelopes.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from the page cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// SetMeta stores an arbitrary meta value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if meta := lookupMeta(c); meta != nil {
		meta.values[key] = value
	}
}

// ExtractMeta snapshots the meta block, stamping the elapsed time and request id.
// It returns nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := lookupMeta(c)
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta.values)+2)
	for k, v := range meta.values {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(meta.start).Milliseconds()
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	return out
}

func lookupMeta(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := value.(*responseMeta)
	return meta
}
