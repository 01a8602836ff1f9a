package discover

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// Directive marks a Go declaration as bound to a text resource:
//
//	//quill:resource ext=txt normalize=true visibility=public
//	type Greeting struct{}
//
// All options are optional. ext defaults to txt, normalize to false and
// visibility follows the identifier (exported → public, otherwise default).
const Directive = "//quill:resource"

// ScanOptions configures ScanSource
type ScanOptions struct {
	ModulePath string // Module path used to fill in import paths (optional)
	Walk       WalkOptions
	Logger     logger.Logger
}

// ScanSource finds every declaration carrying the quill directive in the Go
// files under root. Test files and generated files are skipped.
//
// Malformed directives do not stop the scan: the declarations that could be
// read are returned together with a schema.ValidationErrors describing the rest.
func ScanSource(root string, opts ScanOptions) ([]schema.Declaration, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewSilentLogger()
	}

	var (
		decls []schema.Declaration
		errs  schema.ValidationErrors
	)

	fset := token.NewFileSet()
	err := Walk(root, opts.Walk, func(rel string) error {
		if !strings.HasSuffix(rel, ".go") || strings.HasSuffix(rel, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, filepath.Join(root, filepath.FromSlash(rel)), nil, parser.ParseComments)
		if err != nil {
			errs = append(errs, schema.ValidationError{Field: rel, Message: err.Error()})
			return nil
		}
		if ast.IsGenerated(file) {
			return nil
		}

		found, ferrs := scanFile(fset, rel, file, opts.ModulePath)
		if len(found) > 0 {
			log.Debug("found marked declarations", logger.F("file", rel), logger.F("count", len(found)))
		}
		decls = append(decls, found...)
		errs = append(errs, ferrs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return decls, errs.OrNil()
}

// marked is a declared name and the doc comment that may carry the directive
type marked struct {
	name *ast.Ident
	doc  *ast.CommentGroup
}

func scanFile(fset *token.FileSet, rel string, file *ast.File, modulePath string) ([]schema.Declaration, schema.ValidationErrors) {
	dir := path.Dir(rel)
	pkg := schema.PackageFromDir(dir)

	importPath := ""
	if modulePath != "" {
		importPath = modulePath
		if pkg != "" {
			importPath = modulePath + "/" + dir
		}
	}

	var (
		decls []schema.Declaration
		errs  schema.ValidationErrors
	)

	for _, m := range markedNames(file) {
		text, ok := findDirective(m.doc)
		if !ok {
			continue
		}

		line := fset.Position(m.name.Pos()).Line
		binding, visibility, err := parseDirective(text, m.name.IsExported())
		if err != nil {
			errs = append(errs, schema.ValidationError{
				Field:   fmt.Sprintf("%s.%s", rel, m.name.Name),
				Message: err.Error(),
				Line:    line,
			})
			continue
		}

		decls = append(decls, schema.Declaration{
			Package:    pkg,
			Name:       m.name.Name,
			GoPackage:  file.Name.Name,
			ImportPath: importPath,
			Visibility: visibility,
			Binding:    binding,
			Source:     fmt.Sprintf("%s:%d", rel, line),
		})
	}

	return decls, errs
}

// markedNames lists the top-level names of a file with their doc comments.
// A lone spec in a declaration uses the declaration's doc comment.
func markedNames(file *ast.File) []marked {
	var out []marked
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				out = append(out, marked{name: d.Name, doc: d.Doc})
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					out = append(out, marked{name: s.Name, doc: specDoc(d, s.Doc)})
				case *ast.ValueSpec:
					for _, name := range s.Names {
						out = append(out, marked{name: name, doc: specDoc(d, s.Doc)})
					}
				}
			}
		}
	}
	return out
}

func specDoc(d *ast.GenDecl, doc *ast.CommentGroup) *ast.CommentGroup {
	if doc == nil && !d.Lparen.IsValid() {
		return d.Doc
	}
	return doc
}

// findDirective returns the text after the directive marker
func findDirective(doc *ast.CommentGroup) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, Directive)
		if !ok {
			continue
		}
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue // a different directive sharing the prefix
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// parseDirective reads key=value options
func parseDirective(text string, exported bool) (schema.Binding, schema.Visibility, error) {
	binding := schema.Binding{FileExtension: schema.DefaultExtension}
	visibility := schema.Default
	if exported {
		visibility = schema.Public
	}

	for _, opt := range strings.Fields(text) {
		key, value, hasValue := strings.Cut(opt, "=")
		switch key {
		case "ext", "extension":
			binding.FileExtension = strings.TrimPrefix(value, ".")
		case "normalize":
			if !hasValue {
				binding.NormalizeSpace = true
				continue
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return binding, visibility, fmt.Errorf("invalid normalize value %q", value)
			}
			binding.NormalizeSpace = b
		case "visibility":
			v, err := schema.ParseVisibility(value)
			if err != nil {
				return binding, visibility, err
			}
			visibility = v
		default:
			return binding, visibility, fmt.Errorf("unknown %s option %q", Directive, key)
		}
	}
	return binding, visibility, nil
}

// Merge combines declaration sets, keeping the first declaration seen for each
// qualified name, and sorts the result by qualified name.
func Merge(sets ...[]schema.Declaration) []schema.Declaration {
	seen := make(map[string]bool)
	var out []schema.Declaration
	for _, set := range sets {
		for _, d := range set {
			q := d.QualifiedName()
			if seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}
