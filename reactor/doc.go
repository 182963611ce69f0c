// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness pollers behind the cooperative scheduler:
// epoll (Linux) and poll(2) (other Unix systems), each with a wakeup channel
// that other goroutines can use to interrupt a blocking wait.
package reactor
