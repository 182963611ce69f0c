// File: api/archive.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Archive contract used by the server to ship whole directories as a single buffer.

package api

// Archiver converts a directory tree to and from one in-memory byte buffer.
type Archiver interface {
	// PackDirectory returns a snapshot of the tree rooted at path.
	// It fails with an error wrapping ErrNotFound when path does not exist.
	PackDirectory(path string) ([]byte, error)

	// UnpackDirectory restores a snapshot produced by PackDirectory under dest.
	UnpackDirectory(data []byte, dest string) error
}
