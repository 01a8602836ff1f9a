// Package render turns provider templates into Go source.
//
// Templates live in an embedded store and contain literal placeholder
// tokens such as $NAME or $TEXT. Rendering replaces each bound token in a
// single pass; tokens without a binding are left as they are.
package render

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/tools/imports"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// TemplateID names a template in the store
type TemplateID string

const (
	LazyLoading     TemplateID = "runtime-loading"
	EmbeddedLiteral TemplateID = "embedded-literal"
)

// Token is a literal placeholder marker
type Token string

const (
	Package     Token = "$PACKAGE"     // dotted logical package
	GoPackage   Token = "$GOPACKAGE"   // package clause of the generated file
	Name        Token = "$NAME"        // provider identifier
	Declaration Token = "$DECLARATION" // qualified name of the marked declaration
	Visibility  Token = "$VISIBILITY"  // visibility keyword
	Text        Token = "$TEXT"        // resource text, inserted as a quoted literal
	Resource    Token = "$RESOURCE"    // resource file name
	Source      Token = "$SOURCE"      // resource path relative to the search root
	Dir         Token = "$DIR"         // package directory
	Runtime     Token = "$RUNTIME"     // import path of the runtime loader
)

// Value is a token replacement
type Value struct {
	text    string
	literal bool
}

// Ident returns a value inserted verbatim. Use it for names that are already
// validated identifiers or paths.
func Ident(s string) Value {
	return Value{text: s}
}

// Literal returns a value inserted as a quoted, escaped Go string literal
func Literal(s string) Value {
	return Value{text: s, literal: true}
}

// String returns the text that replaces the token
func (v Value) String() string {
	if v.literal {
		return strconv.Quote(v.text)
	}
	return v.text
}

// Bindings maps tokens to their replacements
type Bindings map[Token]Value

// TemplateError reports a template missing from the store
type TemplateError struct {
	ID  TemplateID
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q unavailable: %v", e.ID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Renderer loads templates from a store and substitutes tokens.
// Loaded template texts are cached and never change.
type Renderer struct {
	store fs.FS
	cache map[TemplateID]string
	mu    sync.RWMutex // Protect cache for concurrent access
}

// NewRenderer creates a renderer over the built-in template store
func NewRenderer() *Renderer {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("render: embedded templates: %v", err))
	}
	return NewRendererFS(sub)
}

// NewRendererFS creates a renderer over a custom store.
// Templates are looked up as <id>.tmpl.
func NewRendererFS(store fs.FS) *Renderer {
	return &Renderer{
		store: store,
		cache: make(map[TemplateID]string),
	}
}

// Load returns the text of a template, reading it from the store on first use
func (r *Renderer) Load(id TemplateID) (string, error) {
	r.mu.RLock()
	if tmpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	data, err := fs.ReadFile(r.store, string(id)+".tmpl")
	if err != nil {
		return "", &TemplateError{ID: id, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[id] = string(data)
	return r.cache[id], nil
}

// Render loads a template and substitutes the bindings into it
func (r *Renderer) Render(id TemplateID, bindings Bindings) (string, error) {
	tmpl, err := r.Load(id)
	if err != nil {
		return "", err
	}
	return Substitute(tmpl, bindings), nil
}

// Substitute replaces every bound token in tmpl. Replacement is a single
// left-to-right pass, so inserted values are never scanned for tokens again.
func Substitute(tmpl string, bindings Bindings) string {
	if len(bindings) == 0 {
		return tmpl
	}

	tokens := make([]Token, 0, len(bindings))
	for tok := range bindings {
		tokens = append(tokens, tok)
	}
	// Longer tokens first so a token never matches the prefix of another
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	pairs := make([]string, 0, 2*len(tokens))
	for _, tok := range tokens {
		pairs = append(pairs, string(tok), bindings[tok].String())
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// FormatGo gofmt-formats rendered Go source. filename is used in error messages.
func FormatGo(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format generated source %s: %w", filename, err)
	}
	return out, nil
}
