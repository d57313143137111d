package comments

import (
	"context"
	"log"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Feedback receives transient user-visible messages.
type Feedback interface {
	Toast(message string, severity Severity)
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func(message string, severity Severity)

func (f FeedbackFunc) Toast(message string, severity Severity) {
	f(message, severity)
}

// ConfirmFunc asks the user to confirm a destructive action.
type ConfirmFunc func(prompt string) bool

type feedbackKey struct{}

// WithFeedback routes toasts raised while serving ctx to fb instead of the
// thread's default sink.
func WithFeedback(ctx context.Context, fb Feedback) context.Context {
	return context.WithValue(ctx, feedbackKey{}, fb)
}

func (t *Thread) toast(ctx context.Context, message string, severity Severity) {
	if fb, ok := ctx.Value(feedbackKey{}).(Feedback); ok && fb != nil {
		fb.Toast(message, severity)
		return
	}
	if t.feedback != nil {
		t.feedback.Toast(message, severity)
		return
	}
	log.Printf("[comments] %s: %s", severity, message)
}
