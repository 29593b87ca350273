package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/gate"
	"github.com/gin-gonic/gin"
)

// ErrorBody describes a failure. StackTrace lists the wrapped error chain,
// outermost first; it never contains a goroutine stack.
type ErrorBody struct {
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace"`
}

// Response is the envelope of every storefront API response.
type Response struct {
	Data       any        `json:"data"`
	Message    string     `json:"message"`
	Error      *ErrorBody `json:"error"`
	Authorized *bool      `json:"authorized"`
	RequestID  int64      `json:"requestId"`
}

func newErrorBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	var trace []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		trace = append(trace, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	return &ErrorBody{Message: err.Error(), StackTrace: strings.Join(trace, "\n")}
}

// statusFor maps service errors to HTTP statuses. Anything that is not an
// authorization problem or a missing feature is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrSessionExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func flag(v bool) *bool { return &v }

func respond(c *gin.Context, status int, r Response) {
	c.JSON(status, r)
}

func ok(c *gin.Context, reqID int64, data any, message string, authorized *bool) {
	respond(c, http.StatusOK, Response{Data: data, Message: message, Authorized: authorized, RequestID: reqID})
}

// invalid rejects a request of an authorized caller that lacks a field.
func invalid(c *gin.Context, reqID int64, message string) {
	respond(c, http.StatusInternalServerError, Response{Message: message, Authorized: flag(true), RequestID: reqID})
}

// failed renders err with the status it maps to. A 401 always reports
// authorized=false.
func failed(c *gin.Context, reqID int64, message string, err error, authorized *bool) {
	status := statusFor(err)
	if status == http.StatusUnauthorized {
		authorized = flag(false)
	}
	_ = c.Error(err)
	respond(c, status, Response{Message: message, Error: newErrorBody(err), Authorized: authorized, RequestID: reqID})
}

// authorize reports whether the request passed the gate. Otherwise it has
// already answered 401 for a definite rejection or 500 when the session
// could not be checked.
func authorize(c *gin.Context, reqID int64) (gate.Outcome, bool) {
	outcome := gate.FromContext(c.Request.Context())
	status, reject := outcome.Reject()
	if !reject {
		return outcome, true
	}
	respond(c, status, Response{
		Message:    outcome.Message,
		Error:      newErrorBody(outcome.Err),
		Authorized: outcome.AuthorizedFlag(),
		RequestID:  reqID,
	})
	return outcome, false
}
