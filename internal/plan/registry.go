package plan

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// Registry answers whether a declaration already exists and records the ones
// generated during a run. Implementations must be safe for concurrent use.
type Registry interface {
	Lookup(qualifiedName string) bool
	Record(qualifiedName string)
}

// MemoryRegistry is an in-memory, append-only Registry
type MemoryRegistry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewMemoryRegistry creates a registry that already contains names
func NewMemoryRegistry(names ...string) *MemoryRegistry {
	r := &MemoryRegistry{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		r.names[n] = struct{}{}
	}
	return r
}

func (r *MemoryRegistry) Lookup(qualifiedName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[qualifiedName]
	return ok
}

func (r *MemoryRegistry) Record(qualifiedName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[qualifiedName] = struct{}{}
}

// Names returns the registered names in sorted order
func (r *MemoryRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DirRegistry looks for existing declarations in the Go files of an output
// tree. A qualified name com.acme.GreetingProvider exists when any non-test
// .go file in <Root>/com/acme declares GreetingProvider at top level.
type DirRegistry struct {
	Root   string
	Logger logger.Logger

	mu      sync.Mutex
	written map[string]struct{}
}

// NewDirRegistry creates a registry over the output root
func NewDirRegistry(root string, log logger.Logger) *DirRegistry {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &DirRegistry{
		Root:    root,
		Logger:  log,
		written: make(map[string]struct{}),
	}
}

func (r *DirRegistry) Lookup(qualifiedName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.written[qualifiedName]; ok {
		return true
	}

	pkg, name := schema.SplitQualified(qualifiedName)
	dir := filepath.Join(r.Root, filepath.FromSlash(schema.PackageDir(pkg)))
	return r.declared(dir, name)
}

func (r *DirRegistry) Record(qualifiedName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written[qualifiedName] = struct{}{}
}

// declared parses every Go file in dir looking for a top-level name
func (r *DirRegistry) declared(dir, name string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	fset := token.NewFileSet()
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(fileName, ".go") || strings.HasSuffix(fileName, "_test.go") {
			continue
		}

		path := filepath.Join(dir, fileName)
		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			r.Logger.Debug("partial parse of existing source", logger.F("file", path), logger.F("error", err))
		}
		if file != nil && DeclaresName(file, name) {
			return true
		}
	}
	return false
}

// DeclaresName reports whether file declares name at top level
func DeclaresName(file *ast.File, name string) bool {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == name {
				return true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.Name == name {
						return true
					}
				case *ast.ValueSpec:
					for _, ident := range s.Names {
						if ident.Name == name {
							return true
						}
					}
				}
			}
		}
	}
	return false
}
