// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection protocol: read a request, answer it, repeat until the peer
// closes. There is no framing; the client learns the reply is complete when
// the connection closes.

package server

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/momentics/hioload-xfer/api"
	"github.com/momentics/hioload-xfer/core/buffer"
	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/momentics/hioload-xfer/internal/transport"
	"github.com/momentics/hioload-xfer/pool"
	"github.com/sirupsen/logrus"
)

// StopCommand is the administrative request that ends the server's event
// loop. Any peer can send it.
const StopCommand = "stop"

var httpTrailer = []byte("\r\n\r\n")

type connHandler struct {
	conn     *transport.Conn
	cfg      *Config
	archiver api.Archiver
	bufs     *pool.BytePool
	log      logrus.FieldLogger
	buf      []byte
}

func newConnHandler(conn *transport.Conn, cfg *Config, archiver api.Archiver, bufs *pool.BytePool, log logrus.FieldLogger) *connHandler {
	return &connHandler{
		conn:     conn,
		cfg:      cfg,
		archiver: archiver,
		bufs:     bufs,
		log:      log,
		buf:      bufs.GetBuffer(),
	}
}

func (h *connHandler) serve(t *concurrency.Task) error {
	for {
		n, err := transport.Receive(t, h.conn, h.buf)
		if err != nil {
			return ignoreAbort(err)
		}
		if n == 0 {
			h.log.Info("client disconnected")
			return nil
		}

		req := bytes.TrimSuffix(h.buf[:n], httpTrailer)
		if string(req) == StopCommand {
			h.log.Warn("stop command received")
			return ignoreAbort(t.Suspend(concurrency.StopLoop()))
		}
		if err := h.reply(t, string(req)); err != nil {
			return ignoreAbort(err)
		}
	}
}

// reply streams the file or directory named by path, or an error text.
func (h *connHandler) reply(t *concurrency.Task, path string) error {
	log := h.log.WithField("path", path)
	if !utf8.ValidString(path) {
		log.Info("request is not valid UTF-8")
		return h.sendText(t, notFound(path))
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		log.Debug("client requested file")
		data, err := os.ReadFile(path)
		if err != nil {
			return h.sendText(t, fmt.Sprintf("error -- cannot read %s: %v", path, err))
		}
		return h.send(t, log, data)

	case err == nil && info.IsDir():
		log.Debug("client requested directory")
		data, err := h.archiver.PackDirectory(path)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return h.sendText(t, notFound(path))
			}
			return h.sendText(t, fmt.Sprintf("error -- cannot read %s: %v", path, err))
		}
		return h.send(t, log, data)

	default:
		log.Info("requested path not found")
		return h.sendText(t, notFound(path))
	}
}

func notFound(path string) string {
	return fmt.Sprintf("error -- file %s not found", strings.ToValidUTF8(path, "�"))
}

func (h *connHandler) sendText(t *concurrency.Task, msg string) error {
	return transport.SendAll(t, h.conn, []byte(msg))
}

// send streams data chunk by chunk. An empty payload sends nothing.
func (h *connHandler) send(t *concurrency.Task, log logrus.FieldLogger, data []byte) error {
	if len(data) == 0 {
		log.Info("empty payload, nothing sent")
		return nil
	}
	chunks, err := buffer.NewChunker(data, h.cfg.ChunkSize)
	if err != nil {
		return err
	}
	for c := range chunks.All() {
		if err := transport.SendAll(t, h.conn, c.Data); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"bytes": c.Size, "remaining": c.Remaining}).Trace("chunk sent")
	}
	log.WithFields(logrus.Fields{"bytes": len(data), "chunks": chunks.Len()}).Info("reply sent")
	return nil
}

// close runs as the task's exit hook, whatever the outcome.
func (h *connHandler) close() {
	if err := h.conn.Close(); err != nil {
		h.log.WithError(err).Warn("close failed")
	}
	h.bufs.PutBuffer(h.buf)
	h.buf = nil
}

func ignoreAbort(err error) error {
	if errors.Is(err, concurrency.ErrTaskAborted) {
		return nil
	}
	return err
}
