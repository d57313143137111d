package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"yyblog/internal/comments"
)

type toast struct {
	Message  string            `json:"message"`
	Severity comments.Severity `json:"severity"`
}

// toastCollector gathers the toasts raised while serving one request so they
// can be returned in the response body.
type toastCollector struct {
	mu     sync.Mutex
	toasts []toast
}

func (t *toastCollector) Toast(message string, severity comments.Severity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toasts = append(t.toasts, toast{Message: message, Severity: severity})
}

func (t *toastCollector) list() []toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]toast, len(t.toasts))
	copy(out, t.toasts)
	return out
}

// JSON writes obj with the collected toasts attached.
func JSON(c *gin.Context, code int, obj gin.H, fb *toastCollector) {
	if obj == nil {
		obj = gin.H{}
	}
	if fb != nil {
		obj["toasts"] = fb.list()
	} else {
		obj["toasts"] = []toast{}
	}
	c.JSON(code, obj)
}

// statusFor maps comment core errors to HTTP status codes.
func statusFor(err error) int {
	var se *comments.StoreError
	switch {
	case errors.Is(err, comments.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, comments.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, comments.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, comments.ErrCommentNotFound), errors.Is(err, comments.ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, comments.ErrLikeInFlight):
		return http.StatusConflict
	case errors.Is(err, comments.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RenderError writes err as {"error": ...} with the matching status.
func RenderError(c *gin.Context, err error, fb *toastCollector) {
	JSON(c, statusFor(err), gin.H{"error": err.Error()}, fb)
}
