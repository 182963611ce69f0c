// File: server/run.go
// Accept loop and event-loop lifetime of the file-transfer server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"runtime"

	"github.com/momentics/hioload-xfer/affinity"
	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/momentics/hioload-xfer/internal/transport"
	"github.com/sirupsen/logrus"
)

// Run serves connections on the calling goroutine until a client sends the
// stop command, ctx is done, or the loop fails. Everything is shut down
// before Run returns.
func (s *Server) Run(ctx context.Context) error {
	if s.closed {
		return concurrency.ErrSchedulerClosed
	}
	if s.cfg.LoopCPU >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		restore, err := affinity.Pin(s.cfg.LoopCPU)
		if err != nil {
			s.log.WithError(err).Warn("event loop not pinned")
		} else {
			defer func() { _ = restore() }()
			s.log.WithField("cpu", s.cfg.LoopCPU).Debug("event loop pinned")
		}
	}

	defer func() {
		if err := s.Shutdown(); err != nil {
			s.log.WithError(err).Warn("shutdown incomplete")
		}
	}()

	if _, err := s.sched.Spawn("accept", s.acceptLoop); err != nil {
		return err
	}
	s.log.WithField("addr", s.Addr().String()).Info("serving")
	return s.sched.Run(ctx)
}

// acceptLoop hands every accepted connection to its own handler task.
func (s *Server) acceptLoop(t *concurrency.Task) error {
	for {
		conn, err := transport.Accept(t, s.listener)
		if err != nil {
			if errors.Is(err, concurrency.ErrTaskAborted) {
				return nil
			}
			return err
		}

		log := s.log.WithFields(logrus.Fields{"peer": conn.RemoteAddr().String(), "fd": conn.FD()})
		log.Info("connection accepted")

		h := newConnHandler(conn, s.cfg, s.archiver, s.bufs, log)
		if err := spawnHandler(t.Scheduler(), h); err != nil {
			return nil
		}
	}
}

// spawnHandler starts the task serving h. If the scheduler refuses it, the
// connection and its buffer are released at once.
func spawnHandler(sched *concurrency.Scheduler, h *connHandler) error {
	task, err := sched.Spawn("conn", h.serve)
	if err != nil {
		h.close()
		return err
	}
	task.OnExit(h.close)
	return nil
}
