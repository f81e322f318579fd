package httpx

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/marketplace/internal/market"
)

// Status maps a domain error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, market.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, market.ErrInvalidQuantity),
		errors.Is(err, market.ErrInvalidPaymentMethod),
		errors.Is(err, market.ErrInvalidStatus),
		errors.Is(err, market.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes err as an HTTPError. Server-side failures are logged and
// their detail is not sent to the client.
func Abort(c *gin.Context, err error) {
	code := Status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		rid, _ := c.Get("rid")
		if errors.Is(err, market.ErrStockUnderflow) {
			log.Printf("[alarm] rid=%v %s %s: %v", rid, c.Request.Method, c.Request.URL.Path, err)
		} else {
			log.Printf("[http] rid=%v %s %s: %v", rid, c.Request.Method, c.Request.URL.Path, err)
		}
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, market.HTTPError{Error: msg})
}
