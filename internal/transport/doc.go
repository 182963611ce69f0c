// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP sockets and the suspendable I/O primitives built on them.
// Accept, Receive and SendAll never block the process: each one yields a
// readiness Suspension to the cooperative scheduler and performs the syscall
// only after the scheduler resumes the task. Unix only; sockets are raw
// descriptors driven through golang.org/x/sys/unix.

package transport
