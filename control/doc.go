// Package control
// Author: momentics <momentics@gmail.com>
//
// Ambient runtime control for hioload-xfer: logger construction, host alias
// resolution for the listen/connect address, and the Prometheus exporter for
// scheduler metrics. Everything here is resolved before the core components
// are constructed; nothing in this package runs on the event loop except the
// metrics hooks, which only touch goroutine-safe collectors.
package control
