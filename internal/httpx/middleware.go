package httpx

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/marketplace/internal/market"
)

const (
	userHeader = "X-User-ID"
	userKey    = "uid"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		uid, _ := c.Get(userKey)
		log.Printf("[http] rid=%v uid=%v %s %s status=%d dur=%s",
			rid, uid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// RequestObserver is satisfied by *metrics.Metrics.
type RequestObserver interface {
	ObserveRequest(handler string, status int, dur time.Duration)
}

// Metrics records per-route counts and latency. The route template is used
// as the label so ids do not explode cardinality.
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserLookup checks an authenticated id still belongs to an account.
type UserLookup func(ctx context.Context, id string) (*market.User, error)

// CurrentUser trusts the user id set by the upstream auth proxy and checks
// the account exists. Missing or unknown ids get 401; a failing lookup is a
// server error.
func CurrentUser(lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(userHeader)
		if !ValidID(id) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, market.HTTPError{Error: "missing or invalid " + userHeader})
			return
		}
		if _, err := lookup(c.Request.Context(), id); err != nil {
			if errors.Is(err, market.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, market.HTTPError{Error: "unknown user"})
				return
			}
			Abort(c, fmt.Errorf("user lookup: %w", err))
			return
		}
		c.Set(userKey, id)
		c.Next()
	}
}

// UserID returns the id stored by CurrentUser.
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}

// ValidID reports whether s is a well-formed resource id.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
