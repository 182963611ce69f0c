// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"net"

	"github.com/momentics/hioload-xfer/archive"
	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/momentics/hioload-xfer/internal/transport"
	"github.com/momentics/hioload-xfer/pool"
	"github.com/momentics/hioload-xfer/reactor"
	"github.com/sirupsen/logrus"
)

// New binds the listener and builds the scheduler. Nothing is served until Run.
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		archiver: archive.Tar{},
		bufs:     pool.NewBytePool(cfg.RecvSize),
	}
	for _, o := range opts {
		o(s)
	}

	if s.poller == nil {
		p, err := reactor.New()
		if err != nil {
			return nil, err
		}
		s.poller = p
	}

	ln, err := transport.Listen(cfg.ListenAddr)
	if err != nil {
		_ = s.poller.Close()
		return nil, err
	}
	s.listener = ln

	s.sched = concurrency.New(s.poller,
		concurrency.WithLogger(s.log),
		concurrency.WithMetrics(s.metrics),
		concurrency.WithMaxEvents(cfg.MaxEvents),
	)
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown discards every pending task (closing their connections), closes
// the poller and the listener. It must not run concurrently with Run; Run
// calls it on return.
func (s *Server) Shutdown() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.sched.Close(), s.listener.Close())
}
