// Package plan derives the providers to generate for a declaration and
// tracks which of them already exist.
package plan

import (
	"path"

	"github.com/simonhull/firebird-suite/quill/internal/render"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// Strategy is how a provider exposes its resource text
type Strategy int

const (
	// Lazy providers load the resource at runtime on first use
	Lazy Strategy = iota
	// Embedded providers carry the resource text as a literal
	Embedded
)

// String returns the strategy name
func (s Strategy) String() string {
	if s == Embedded {
		return "embedded"
	}
	return "lazy"
}

// Template returns the template that renders the strategy
func (s Strategy) Template() render.TemplateID {
	if s == Embedded {
		return render.EmbeddedLiteral
	}
	return render.LazyLoading
}

const (
	// ProviderSuffix is appended to the declaration name for every provider
	ProviderSuffix = "Provider"
	// DefaultEmbeddedSuffix tags the embedded provider
	DefaultEmbeddedSuffix = "J2cl"
)

// Target is one provider planned for a declaration
type Target struct {
	Declaration   schema.Declaration
	Strategy      Strategy
	Name          string // Go identifier of the provider
	QualifiedName string // Package-qualified provider name
	Keyword       string // Visibility keyword
	Exported      bool
	File          string // Slash-separated output path relative to the output root
}

// Planner computes provider targets
type Planner struct {
	EmbeddedSuffix string
}

// NewPlanner creates a planner with the default embedded suffix
func NewPlanner() *Planner {
	return &Planner{EmbeddedSuffix: DefaultEmbeddedSuffix}
}

// Plan returns the lazy and embedded targets for decl, in that order
func (p *Planner) Plan(decl schema.Declaration) []Target {
	suffix := p.EmbeddedSuffix
	if suffix == "" {
		suffix = DefaultEmbeddedSuffix
	}
	return []Target{
		newTarget(decl, Lazy, decl.Name+ProviderSuffix),
		newTarget(decl, Embedded, decl.Name+ProviderSuffix+suffix),
	}
}

func newTarget(decl schema.Declaration, strategy Strategy, base string) Target {
	exported := IsExported(decl.Visibility)

	name := render.Unexported(base)
	if exported {
		name = render.Exported(base)
	}

	file := render.SnakeCase(name) + ".go"
	if dir := decl.Dir(); dir != "" {
		file = path.Join(dir, file)
	}

	return Target{
		Declaration:   decl,
		Strategy:      strategy,
		Name:          name,
		QualifiedName: schema.Qualify(decl.Package, name),
		Keyword:       VisibilityKeyword(decl.Visibility),
		Exported:      exported,
		File:          file,
	}
}

// VisibilityKeyword maps a declaration's visibility to the provider's
func VisibilityKeyword(v schema.Visibility) string {
	switch v {
	case schema.Public:
		return "public"
	case schema.Protected:
		return "protected"
	case schema.Private:
		return "private"
	default:
		return "package"
	}
}

// IsExported reports whether a provider with visibility v is spelled as an
// exported Go identifier
func IsExported(v schema.Visibility) bool {
	switch v {
	case schema.Public, schema.Protected:
		return true
	default:
		return false
	}
}
