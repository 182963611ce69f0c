// File: archive/tar.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package archive snapshots a directory tree into a single in-memory tar
// buffer and restores it. No temporary files are involved on either side.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/momentics/hioload-xfer/api"
)

var (
	// ErrNotFound is returned by PackDirectory when the path does not exist.
	ErrNotFound = api.ErrNotFound
	// ErrUnsafePath is returned by UnpackDirectory for entries that would
	// land outside the destination.
	ErrUnsafePath = api.ErrUnsafePath
)

// Tar implements api.Archiver with the ustar/PAX format.
type Tar struct{}

var _ api.Archiver = Tar{}

// PackDirectory implements api.Archiver.
func (Tar) PackDirectory(path string) ([]byte, error) { return PackDirectory(path) }

// UnpackDirectory implements api.Archiver.
func (Tar) UnpackDirectory(data []byte, dest string) error { return UnpackDirectory(data, dest) }

// PackDirectory returns a tar of the tree rooted at root. Entries are named
// after root's base name, so "/srv/photos" packs as "photos/...". Regular
// files, directories and symlinks are kept; other file types are skipped.
func PackDirectory(root string) ([]byte, error) {
	root = filepath.Clean(root)
	if _, err := os.Lstat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("pack %s: %w: %w", root, ErrNotFound, err)
		}
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}
	base := filepath.Base(root)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := path.Join(base, filepath.ToSlash(rel))
		return addEntry(tw, p, name, d)
	})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}
	return buf.Bytes(), nil
}

func addEntry(tw *tar.Writer, p, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	var link string
	switch mode := info.Mode(); {
	case mode.IsDir(), mode.IsRegular():
	case mode&fs.ModeSymlink != 0:
		if link, err = os.Readlink(p); err != nil {
			return err
		}
	default:
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// UnpackDirectory restores a PackDirectory buffer under dest, creating dest
// if needed and overwriting files that already exist.
func UnpackDirectory(data []byte, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("unpack: %w", err)
	}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("unpack: %w", err)
		}
		if err := extractEntry(tr, hdr, dest); err != nil {
			return fmt.Errorf("unpack %s: %w", hdr.Name, err)
		}
	}
}

func extractEntry(r io.Reader, hdr *tar.Header, dest string) error {
	name := filepath.FromSlash(hdr.Name)
	if !filepath.IsLocal(name) {
		return ErrUnsafePath
	}
	if err := checkNoSymlinkParents(dest, name); err != nil {
		return err
	}
	target := filepath.Join(dest, name)
	perm := hdr.FileInfo().Mode().Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		if fi, err := os.Lstat(target); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
			return ErrUnsafePath
		}
		return os.MkdirAll(target, perm|0o700)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		// Replace a symlink rather than write through it.
		if fi, err := os.Lstat(target); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
			if err := os.Remove(target); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case tar.TypeSymlink:
		resolved := filepath.Join(filepath.Dir(name), filepath.FromSlash(hdr.Linkname))
		if filepath.IsAbs(hdr.Linkname) || !filepath.IsLocal(resolved) {
			return ErrUnsafePath
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Symlink(hdr.Linkname, target)
	default:
		return nil
	}
}

// checkNoSymlinkParents refuses a name whose directories below dest already
// exist as symlinks: extraction would follow them out of dest.
func checkNoSymlinkParents(dest, name string) error {
	dir := dest
	for _, part := range strings.Split(filepath.Dir(name), string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}
		dir = filepath.Join(dir, part)
		fi, err := os.Lstat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return ErrUnsafePath
		}
	}
	return nil
}
