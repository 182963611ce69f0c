// File: server/options.go
// Functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-xfer/api"
	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/sirupsen/logrus"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the logger shared by the server and its scheduler.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a scheduler metrics sink, e.g. control.MetricsExporter.
func WithMetrics(m concurrency.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithArchiver replaces the tar archiver used for directory requests.
func WithArchiver(a api.Archiver) Option {
	return func(s *Server) {
		if a != nil {
			s.archiver = a
		}
	}
}

// WithPoller supplies the readiness poller instead of reactor.New.
// The server takes ownership and closes it on shutdown.
func WithPoller(p api.Poller) Option {
	return func(s *Server) {
		s.poller = p
	}
}
