// File: client/client.go
// Package client fetches files and directory archives from an xfer server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One request per connection: the path is written, the write side is
// half-closed and the reply is read until the server closes the connection.

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/momentics/hioload-xfer/api"
	"github.com/sirupsen/logrus"
)

// DefaultBufferSize is the per-read buffer length.
const DefaultBufferSize = 8092

var httpTrailer = []byte("\r\n\r\n")

type options struct {
	bufferSize  int
	httpTrailer bool
	log         logrus.FieldLogger
}

// Option customizes a fetch.
type Option func(*options)

// WithBufferSize sets the size of each read from the connection.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithHTTPTrailer appends "\r\n\r\n" to the request; the server strips it.
func WithHTTPTrailer(on bool) Option {
	return func(o *options) {
		o.httpTrailer = on
	}
}

// WithLogger sets the logger for connection events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Fetch requests path from the server at addr and returns the full reply.
// On error the bytes received so far are returned with it.
func Fetch(ctx context.Context, addr, path string, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	_, err := FetchTo(ctx, addr, path, &buf, opts...)
	return buf.Bytes(), err
}

// FetchTo streams the reply for path into w and returns the byte count.
func FetchTo(ctx context.Context, addr, path string, w io.Writer, opts ...Option) (int64, error) {
	o := options{
		bufferSize: DefaultBufferSize,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufferSize <= 0 {
		return 0, fmt.Errorf("buffer size %d: %w", o.bufferSize, api.ErrInvalidArgument)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	log := o.log.WithField("addr", conn.RemoteAddr().String())
	log.Debug("connected")

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	// Unblock pending I/O when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	req := []byte(path)
	if o.httpTrailer {
		req = append(req, httpTrailer...)
	}
	if _, err := conn.Write(req); err != nil {
		return 0, wrapCtx(ctx, fmt.Errorf("send request: %w", err))
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return 0, wrapCtx(ctx, fmt.Errorf("half-close: %w", err))
		}
	}
	log.WithField("path", path).Info("request sent")

	var total int64
	buf := make([]byte, o.bufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("write output: %w", werr)
			}
			total += int64(n)
			log.WithFields(logrus.Fields{"bytes": n, "total": total}).Trace("received")
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, wrapCtx(ctx, fmt.Errorf("receive: %w", err))
		}
	}
	log.WithField("bytes", total).Info("reply received")
	return total, nil
}

// wrapCtx reports the context error in place of the deadline error it caused.
func wrapCtx(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	// The connection deadline can expire just ahead of the context timer.
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
