// File: server/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package server serves files and directory archives over TCP. One
// cooperative scheduler runs the accept loop and a handler task per
// connection on the goroutine that calls Run.
package server
