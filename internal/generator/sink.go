package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/simonhull/firebird-suite/quill/internal/plan"
)

var (
	errClosed  = errors.New("provider file already closed")
	errAborted = errors.New("provider file aborted")
)

// FileSink writes provider files under Root. A file is written when its
// writer is closed; an existing file is never overwritten.
type FileSink struct {
	Root   string
	DryRun bool
	Writer io.Writer // Where to report writes (defaults to os.Stdout)

	mu sync.Mutex // serializes writes and their report lines
}

// Create returns a writer for target's file
func (s *FileSink) Create(target plan.Target) (io.WriteCloser, error) {
	if target.File == "" {
		return nil, errors.New("target has no output file")
	}
	return &providerFile{
		sink: s,
		path: filepath.Join(s.Root, filepath.FromSlash(target.File)),
	}, nil
}

type providerFile struct {
	sink    *FileSink
	path    string
	buf     bytes.Buffer
	closed  bool
	aborted bool
}

func (f *providerFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errClosed
	}
	if f.aborted {
		return 0, errAborted
	}
	return f.buf.Write(p)
}

// Abort discards the buffered content; Close then writes nothing
func (f *providerFile) Abort() {
	f.aborted = true
	f.buf.Reset()
}

// Close writes the buffered content unless the file was aborted.
// Closing twice is a no-op.
func (f *providerFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.aborted {
		return nil
	}

	op := &WriteFileOp{
		Path:    f.path,
		Content: append([]byte{}, f.buf.Bytes()...),
		Mode:    0644,
	}

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	_, err := Execute(context.Background(), []Operation{op}, ExecuteOptions{
		DryRun: f.sink.DryRun,
		Writer: f.sink.Writer,
	})
	return err
}
