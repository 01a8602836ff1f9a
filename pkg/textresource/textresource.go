// Package textresource is the runtime side of quill-generated providers.
//
// Lazy providers read their resource from a file system on first use; by
// default that is the working directory, and programs that ship resources
// elsewhere (or embed them) point the package at another fs.FS:
//
//	//go:embed com
//	var resources embed.FS
//
//	func init() { textresource.SetFS(resources) }
//
// Embedded providers are Literal values and never touch a file system.
package textresource

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

// Provider exposes the text of a bound resource
type Provider interface {
	Text() (string, error)
}

// Loader reads text resources from a file system
type Loader struct {
	FS fs.FS
}

// Load reads name from the package directory dir
func (l *Loader) Load(dir, name string) (string, error) {
	p := name
	if dir != "" {
		p = path.Join(dir, name)
	}
	data, err := fs.ReadFile(l.FS, p)
	if err != nil {
		return "", fmt.Errorf("textresource: load %s: %w", p, err)
	}
	return string(data), nil
}

var (
	defaultMu     sync.RWMutex
	defaultLoader = &Loader{FS: os.DirFS(".")}
)

// SetFS changes the file system lazy providers load from. Providers that
// already loaded their text keep it.
func SetFS(fsys fs.FS) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLoader = &Loader{FS: fsys}
}

// Default returns the loader used by lazy providers
func Default() *Loader {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLoader
}

// LazyText loads its resource once, on the first call to Text
type LazyText struct {
	dir  string
	name string

	once sync.Once
	text string
	err  error
}

// Lazy returns a provider for the resource name in package directory dir
func Lazy(dir, name string) *LazyText {
	return &LazyText{dir: dir, name: name}
}

// Text returns the resource text. The result of the first load, including
// an error, is remembered.
func (l *LazyText) Text() (string, error) {
	l.once.Do(func() {
		l.text, l.err = Default().Load(l.dir, l.name)
	})
	return l.text, l.err
}

// MustText returns the resource text and panics if it cannot be loaded
func (l *LazyText) MustText() string {
	text, err := l.Text()
	if err != nil {
		panic(err)
	}
	return text
}

// Name returns the resource path the provider loads
func (l *LazyText) Name() string {
	if l.dir == "" {
		return l.name
	}
	return path.Join(l.dir, l.name)
}

// Literal is a provider whose text was embedded at generation time
type Literal string

// Text returns the embedded text
func (l Literal) Text() (string, error) {
	return string(l), nil
}

// String returns the embedded text
func (l Literal) String() string {
	return string(l)
}
