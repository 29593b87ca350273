package common

const (
	// AuthorizationHeaderName carries "Bearer <token>" on protected requests.
	AuthorizationHeaderName = "Authorization"

	// RequestIDHeaderName is the server-side correlation header.
	RequestIDHeaderName = "X-Request-ID"

	// DefaultClientRequestID is echoed when the client sends no requestId.
	DefaultClientRequestID int64 = -1
)
