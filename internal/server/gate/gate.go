// Package gate resolves the bearer token of each request into an Outcome.
//
// The gate never rejects a request itself. It records what it found in the
// request context and lets every handler decide: anonymous endpoints ignore
// the outcome, protected ones call Outcome.Reject.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/gin-gonic/gin"
)

type State int

const (
	// NoToken means the request carried no Authorization header.
	NoToken State = iota
	// Unauthorized covers invalid tokens and expired sessions.
	Unauthorized
	Authorized
	// Failed means the session could not be checked, e.g. the store is down.
	Failed
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Unauthorized:
		return "unauthorized"
	case Authorized:
		return "authorized"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const (
	MessageNoToken      = "No authorization token provided."
	MessageInvalidToken = "Error extending session.  Invalid token"
	MessageExpired      = "Unauthorized.  Session expired."
	MessageExtended     = "Successfully extended session."
	MessageFailed       = "Failed to extend session."
)

// Outcome is the result of checking one request's credentials.
type Outcome struct {
	State   State
	Token   string
	Session *models.Session
	Message string
	Err     error
}

func (o Outcome) Authorized() bool {
	return o.State == Authorized
}

// Reject reports the status a protected endpoint must answer with, or false
// when the request may proceed.
func (o Outcome) Reject() (int, bool) {
	switch o.State {
	case Authorized:
		return 0, false
	case NoToken, Unauthorized:
		return http.StatusUnauthorized, true
	default:
		return http.StatusInternalServerError, true
	}
}

// AuthorizedFlag is the envelope's "authorized" value: false for a definite
// rejection, true when authorized and nil when indeterminate.
func (o Outcome) AuthorizedFlag() *bool {
	var v bool
	switch o.State {
	case Authorized:
		v = true
	case NoToken, Unauthorized:
		v = false
	default:
		return nil
	}
	return &v
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type SessionExtender interface {
	Extend(ctx context.Context, sessionID string, ttl time.Duration) (*models.Session, error)
}

type Gate struct {
	tokens   TokenVerifier
	sessions SessionExtender
	ttl      time.Duration
	log      logging.Logger
}

func New(tokens TokenVerifier, sessions SessionExtender, ttl time.Duration, log logging.Logger) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, ttl: ttl, log: log.With("module", "gate")}
}

// BearerToken extracts the token from an Authorization header value. A value
// without the "Bearer " scheme is taken as the token itself.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Evaluate verifies the token in header and slides the session it names.
func (g *Gate) Evaluate(ctx context.Context, header string) Outcome {
	token := BearerToken(header)
	if token == "" {
		return Outcome{State: NoToken, Message: MessageNoToken}
	}

	sessionID, err := g.tokens.Verify(token)
	if err != nil {
		g.log.Debug(ctx, "token rejected", "error", err)
		return Outcome{State: Unauthorized, Message: MessageInvalidToken, Err: err}
	}

	session, err := g.sessions.Extend(ctx, sessionID, g.ttl)
	if errors.Is(err, common.ErrSessionExpired) {
		g.log.Debug(ctx, "session expired", "session_id", sessionID)
		return Outcome{State: Unauthorized, Message: MessageExpired, Err: err}
	}
	if err != nil {
		g.log.Error(ctx, "failed to extend session", "session_id", sessionID, "error", err)
		return Outcome{State: Failed, Message: MessageFailed, Err: err}
	}

	return Outcome{State: Authorized, Token: token, Session: session, Message: MessageExtended}
}

// Middleware stores the Outcome in the request context and always continues.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		outcome := g.Evaluate(ctx, c.GetHeader(common.AuthorizationHeaderName))
		c.Request = c.Request.WithContext(NewContext(ctx, outcome))
		c.Next()
	}
}

type outcomeKey struct{}

func NewContext(ctx context.Context, o Outcome) context.Context {
	return context.WithValue(ctx, outcomeKey{}, o)
}

// FromContext returns the Outcome recorded by the middleware. A request that
// never passed through the gate reads as NoToken.
func FromContext(ctx context.Context) Outcome {
	if o, ok := ctx.Value(outcomeKey{}).(Outcome); ok {
		return o
	}
	return Outcome{State: NoToken, Message: MessageNoToken}
}
