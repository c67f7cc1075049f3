package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSPolicy decides which origins may call the comment endpoints. Allowed
// entries are literal origins, /regex/ patterns, or "*". The policy is
// immutable after construction; response headers are computed fresh per
// request so concurrent requests never share header state.
type CORSPolicy struct {
	allowAll bool
	literals map[string]struct{}
	patterns []*regexp.Regexp
}

func NewCORSPolicy(allowedOrigins []string) (*CORSPolicy, error) {
	p := &CORSPolicy{
		literals: make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, entry := range allowedOrigins {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
			continue
		case entry == "*":
			p.allowAll = true
		case len(entry) > 2 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/"):
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid origin pattern %q: %w", entry, err)
			}
			p.patterns = append(p.patterns, re)
		default:
			p.literals[entry] = struct{}{}
		}
	}
	return p, nil
}

// Allows reports whether the origin is on the allow-list.
func (p *CORSPolicy) Allows(origin string) bool {
	if p.allowAll {
		return true
	}
	if _, ok := p.literals[origin]; ok {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// Headers returns the CORS response headers for the given origin, or nil when
// the origin is not allowed. The returned map is a new value on every call.
func (p *CORSPolicy) Headers(origin string) map[string]string {
	if !p.Allows(origin) {
		return nil
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-Request-ID",
		"Access-Control-Max-Age":       "86400",
	}
}

// CORS guards the comment routes. Requests without an Origin header are
// rejected outright; preflight requests are answered without reaching the
// handlers.
func CORS(policy *CORSPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing Origin header"})
			c.Abort()
			return
		}

		for k, v := range policy.Headers(origin) {
			c.Header(k, v)
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			c.Abort()
			return
		}

		c.Next()
	}
}
