package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Out receives command output, Err receives diagnostics
	Out io.Writer
	Err io.Writer

	// Common timeouts
	DefaultTimeout time.Duration

	// Services used by the command handlers
	Services *services.ServiceFactory

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context
func NewContext(factory *services.ServiceFactory) *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Out:            os.Stdout,
		Err:            os.Stderr,
		DefaultTimeout: 30 * time.Second,
		Services:       factory,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	logger.LogDebug(message, nil)
	if !c.Quiet && c.Verbose {
		fmt.Fprintln(c.Err, message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		fmt.Fprintln(c.Err, "Error:", message)
	}
}
