package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPerm is the mode of written files.
const DefaultPerm fs.FileMode = 0o644

// File writes to a temporary file beside the destination and renames it
// into place on Close, so the destination never holds a partial document.
type File struct {
	path string
	perm fs.FileMode

	mu  sync.Mutex
	tmp *os.File
}

// FileOption configures a File.
type FileOption func(*File)

// WithPerm sets the mode of the written file.
func WithPerm(perm fs.FileMode) FileOption {
	return func(f *File) {
		f.perm = perm
	}
}

// NewFile returns a writer for path.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, perm: DefaultPerm}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

// Init creates the destination directory and the temporary file.
func (f *File) Init(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmp != nil {
		return errors.New("writer already initialized")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	f.tmp = tmp
	return nil
}

// Write writes data to the temporary file.
func (f *File) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmp == nil {
		return errors.New("writer not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := f.tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	return nil
}

// Close syncs the temporary file and renames it to the destination. The
// temporary file is removed when any step fails.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmp == nil {
		return errors.New("writer not initialized")
	}
	tmp := f.tmp
	f.tmp = nil

	err := tmp.Sync()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), f.perm)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), f.path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize %s: %w", f.path, err)
	}
	return nil
}

// Abort discards the temporary file. It is safe to call at any time.
func (f *File) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmp == nil {
		return nil
	}
	tmp := f.tmp
	f.tmp = nil

	_ = tmp.Close()
	if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Stream writes to an io.Writer such as os.Stdout. Close does not close the
// underlying writer.
type Stream struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStream returns a writer for w.
func NewStream(w io.Writer) *Stream {
	return &Stream{w: w}
}

// Init implements Writer.
func (s *Stream) Init(_ context.Context) error {
	if s.w == nil {
		return errors.New("no output stream")
	}
	return nil
}

// Write implements Writer.
func (s *Stream) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(data)
	return err
}

// Close implements Writer.
func (s *Stream) Close() error {
	return nil
}
