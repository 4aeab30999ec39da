package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	defaultHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID", "X-Confirm-Delete"}
	exposedHeaders = []string{"X-Request-ID", "Content-Disposition"}
)

const allowedMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// Options configures the CORS middleware.
type Options struct {
	// AllowedOrigins holds exact origins, "*" or a leading-wildcard host such as
	// "https://*.council.example". Empty allows every origin.
	AllowedOrigins []string
	// ExtraHeaders are accepted on top of the admin console defaults.
	ExtraHeaders []string
	MaxAge       time.Duration
}

// New returns CORS middleware for the given origins with default options.
func New(allowedOrigins []string) gin.HandlerFunc {
	return WithOptions(Options{AllowedOrigins: allowedOrigins})
}

// WithOptions returns CORS middleware. Credentials are only allowed for origins
// that were listed explicitly.
func WithOptions(opts Options) gin.HandlerFunc {
	matcher := newOriginMatcher(opts.AllowedOrigins)
	allowHeaders := strings.Join(append(append([]string{}, defaultHeaders...), opts.ExtraHeaders...), ", ")
	expose := strings.Join(exposedHeaders, ", ")
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	maxAgeValue := strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin == "" && matcher.any:
			header.Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			allowed, explicit := matcher.match(origin)
			if !allowed {
				if c.Request.Method == http.MethodOptions {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
				break
			}
			header.Set("Access-Control-Allow-Origin", origin)
			if explicit {
				header.Set("Access-Control-Allow-Credentials", "true")
			}
			header.Set("Access-Control-Expose-Headers", expose)
		}

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Headers", allowHeaders)
			header.Set("Access-Control-Allow-Methods", allowedMethods)
			header.Set("Access-Control-Max-Age", maxAgeValue)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []wildcard
}

type wildcard struct {
	scheme string
	suffix string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: map[string]struct{}{}}
	if len(origins) == 0 {
		m.any = true
	}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			m.suffixes = append(m.suffixes, wildcard{scheme: scheme + "://", suffix: strings.ToLower(host)})
		default:
			m.exact[strings.ToLower(origin)] = struct{}{}
		}
	}
	return m
}

// match reports whether origin is allowed and whether it was listed explicitly.
func (m originMatcher) match(origin string) (bool, bool) {
	normalised := strings.ToLower(strings.TrimRight(origin, "/"))
	if _, ok := m.exact[normalised]; ok {
		return true, true
	}
	for _, w := range m.suffixes {
		if strings.HasPrefix(normalised, w.scheme) && strings.HasSuffix(normalised, w.suffix) {
			return true, true
		}
	}
	return m.any, false
}
