package services

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned when the host has no clipboard utility
var ErrClipboardUnsupported = errors.New("clipboard not supported on this host")

// ClipboardService writes text to the user's clipboard
type ClipboardService interface {
	WriteText(ctx context.Context, text string) error
}

// SystemClipboard uses the operating system clipboard
type SystemClipboard struct {
	write func(string) error
}

func NewSystemClipboard() ClipboardService {
	return &SystemClipboard{write: clipboard.WriteAll}
}

func (c *SystemClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return c.write(text)
}

// MockClipboard records written text
type MockClipboard struct {
	mu      sync.Mutex
	Err     error
	written []string
}

func NewMockClipboard() *MockClipboard {
	return &MockClipboard{}
}

func (c *MockClipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.written = append(c.written, text)
	return nil
}

// Written returns every successfully written text
func (c *MockClipboard) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}
