// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable memory for the I/O path. BytePool hands out fixed-size receive
// buffers to connection handlers and takes them back when the connection
// task exits.
package pool
