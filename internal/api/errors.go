package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrAssistantDisabled   = errors.New("assistant is not configured")
	ErrInvalidStatusFilter = errors.New("invalid status filter")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	Violations any    `json:"violations,omitempty"`
}

// RequestError carries the HTTP status an error should be answered with.
type RequestError struct {
	Err    error
	Status int
	// Violations is rendered next to the message, e.g. rejected tool
	// arguments.
	Violations any
}

// NewRequestError wraps err with an HTTP status code. Handlers use it for
// expected failures.
func NewRequestError(err error, status int) error {
	return &RequestError{Err: err, Status: status}
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// handlerFunc is a gin handler that reports failures by returning them.
type handlerFunc func(c *gin.Context) error

// respondError writes err as JSON. Errors that are not request errors are
// logged and answered with a bare 500.
func (s *Server) respondError(c *gin.Context, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		c.AbortWithStatusJSON(reqErr.Status, ErrorResponse{Error: reqErr.Err.Error(), Violations: reqErr.Violations})
		return
	}

	requestLogger(c).Error().Err(err).Msg("Request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func (s *Server) wrap(h handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			s.respondError(c, err)
		}
	}
}
