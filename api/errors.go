// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared by the scheduler, transport and archive layers.

package api

import "errors"

// Common errors used across the library.
var (
	ErrNotSupported      = errors.New("operation not supported")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrEmptyInput        = errors.New("empty input")
	ErrAlreadyRegistered = errors.New("descriptor already registered")
	ErrNotRegistered     = errors.New("descriptor not registered")
	ErrPollerClosed      = errors.New("poller is closed")
	ErrSchedulerClosed   = errors.New("scheduler is closed")
	ErrTaskAborted       = errors.New("task aborted")
	ErrUnsafePath        = errors.New("unsafe archive path")
)
