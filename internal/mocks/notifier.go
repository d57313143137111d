package mocks

import (
	"context"
	"sync"

	"yyblog/internal/comments"
)

// MockNotifier records every notice it receives.
type MockNotifier struct {
	mu      sync.Mutex
	notices []comments.NewCommentNotice
	Err     error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (n *MockNotifier) NotifyComment(ctx context.Context, notice comments.NewCommentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.Err
}

func (n *MockNotifier) Notices() []comments.NewCommentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]comments.NewCommentNotice, len(n.notices))
	copy(out, n.notices)
	return out
}

// MockFeedback collects toasts.
type MockFeedback struct {
	mu     sync.Mutex
	Toasts []Toast
}

type Toast struct {
	Message  string
	Severity comments.Severity
}

func (f *MockFeedback) Toast(message string, severity comments.Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Toasts = append(f.Toasts, Toast{Message: message, Severity: severity})
}

// Last returns the most recent toast, or the zero Toast.
func (f *MockFeedback) Last() Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Toasts) == 0 {
		return Toast{}
	}
	return f.Toasts[len(f.Toasts)-1]
}
