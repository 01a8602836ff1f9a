// Package resource finds the text resources bound to marked declarations.
//
// Resources are looked up under a primary root (the source tree) and, when
// the primary root reports the file as missing, under a secondary root (the
// compiled or staged resources tree). Callers do not need to know which
// layout the build is running from.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// ResolutionError reports a resource that could not be read from either root
type ResolutionError struct {
	Package   string
	Name      string
	Extension string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve resource %s.%s in package %q: %v", e.Name, e.Extension, e.Package, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver reads resource text from a primary root with fallback to a secondary root.
// A nil Secondary disables the fallback.
type Resolver struct {
	Primary   fs.FS
	Secondary fs.FS
	Logger    logger.Logger
}

// NewDirResolver creates a resolver over two directories. An empty
// resourceRoot means there is no secondary root.
func NewDirResolver(sourceRoot, resourceRoot string, log logger.Logger) *Resolver {
	r := &Resolver{
		Primary: os.DirFS(sourceRoot),
		Logger:  log,
	}
	if resourceRoot != "" {
		r.Secondary = os.DirFS(resourceRoot)
	}
	return r
}

// Resolve returns the content of <pkg as dir>/<baseName>.<ext>.
// Nothing is cached; every call reads the file again.
func (r *Resolver) Resolve(pkg, baseName, ext string) (string, error) {
	name := baseName + "." + ext
	if dir := schema.PackageDir(pkg); dir != "" {
		name = path.Join(dir, name)
	}

	fail := func(err error) (string, error) {
		return "", &ResolutionError{Package: pkg, Name: baseName, Extension: ext, Err: err}
	}

	if r.Primary == nil {
		return fail(errors.New("no primary search root configured"))
	}

	data, err := fs.ReadFile(r.Primary, name)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) || r.Secondary == nil {
		return fail(err)
	}

	r.log().Debug("resource not in primary root, trying secondary", logger.F("resource", name))

	data, err = fs.ReadFile(r.Secondary, name)
	if err != nil {
		return fail(fmt.Errorf("not found in source or resource root: %w", err))
	}
	return string(data), nil
}

func (r *Resolver) log() logger.Logger {
	if r.Logger == nil {
		return logger.NewSilentLogger()
	}
	return r.Logger
}
