package server

import (
	"fmt"

	"github.com/momentics/hioload-xfer/api"
	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/momentics/hioload-xfer/internal/transport"
	"github.com/momentics/hioload-xfer/pool"
	"github.com/sirupsen/logrus"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr string // TCP bind address, e.g. "127.0.0.1:5000"; port 0 picks one
	ChunkSize  int    // bytes per send while streaming a reply
	RecvSize   int    // maximum request size read in one receive
	MaxEvents  int    // readiness events consumed per poll
	LoopCPU    int    // pin the event-loop thread to this CPU (-1 = no pinning)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:5000",
		ChunkSize:  4096,
		RecvSize:   4096,
		MaxEvents:  128,
		LoopCPU:    -1,
	}
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address: %w", api.ErrInvalidArgument)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size %d: %w", c.ChunkSize, api.ErrInvalidArgument)
	}
	if c.RecvSize <= 0 {
		return fmt.Errorf("receive size %d: %w", c.RecvSize, api.ErrInvalidArgument)
	}
	return nil
}

// Server is the file-transfer facade: one listener, one scheduler, one
// handler task per connection.
type Server struct {
	cfg      *Config
	log      logrus.FieldLogger
	metrics  concurrency.Metrics
	archiver api.Archiver
	bufs     *pool.BytePool
	poller   api.Poller
	listener *transport.Listener
	sched    *concurrency.Scheduler
	closed   bool
}

var _ api.GracefulShutdown = (*Server)(nil)
