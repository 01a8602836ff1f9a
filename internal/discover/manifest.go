package discover

import (
	"fmt"
	"go/token"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

const (
	// ManifestAPIVersion is the supported manifest apiVersion
	ManifestAPIVersion = "quill/v1"
	// ManifestKind is the supported manifest kind
	ManifestKind = "TextResources"
	// DefaultManifest is the manifest file looked for in the project root
	DefaultManifest = "quill.resources.yml"
)

// Manifest lists declarations that are not marked in Go source
type Manifest struct {
	APIVersion string          `yaml:"apiVersion"`
	Kind       string          `yaml:"kind"`
	Resources  []ManifestEntry `yaml:"resources"`
}

// ManifestEntry is one marked declaration
type ManifestEntry struct {
	Package        string  `yaml:"package"`
	Name           string  `yaml:"name"`
	Visibility     string  `yaml:"visibility,omitempty"`
	Extension      *string `yaml:"extension,omitempty"` // nil means schema.DefaultExtension
	NormalizeSpace bool    `yaml:"normalize_space,omitempty"`
	GoPackage      string  `yaml:"go_package,omitempty"`
}

// LoadManifest reads and validates a manifest file
func LoadManifest(path string) ([]schema.Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(path, data)
}

// ParseManifest parses manifest bytes. source names the manifest in
// declaration sources and errors.
//
// Entry extensions are not validated here: an empty extension fails only
// that declaration when the engine runs.
func ParseManifest(source string, data []byte) ([]schema.Declaration, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", source, err)
	}

	var m Manifest
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", source, err)
	}

	lines := entryLines(&root)

	var errs schema.ValidationErrors
	if m.APIVersion != ManifestAPIVersion {
		errs = append(errs, schema.ValidationError{
			Field:      "apiVersion",
			Message:    fmt.Sprintf("unsupported apiVersion %q", m.APIVersion),
			Suggestion: "use " + ManifestAPIVersion,
		})
	}
	if m.Kind != ManifestKind {
		errs = append(errs, schema.ValidationError{
			Field:      "kind",
			Message:    fmt.Sprintf("unsupported kind %q", m.Kind),
			Suggestion: "use " + ManifestKind,
		})
	}

	decls := make([]schema.Declaration, 0, len(m.Resources))
	for i, entry := range m.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		line := 0
		if i < len(lines) {
			line = lines[i]
		}

		decl, err := entry.declaration()
		if err != nil {
			errs = append(errs, schema.ValidationError{Field: field, Message: err.Error(), Line: line})
			continue
		}
		decl.Source = fmt.Sprintf("%s:%d", source, line)
		decls = append(decls, decl)
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return decls, nil
}

func (e ManifestEntry) declaration() (schema.Declaration, error) {
	if e.Name == "" {
		return schema.Declaration{}, fmt.Errorf("name is required")
	}
	if !token.IsIdentifier(e.Name) {
		return schema.Declaration{}, fmt.Errorf("name %q is not a valid Go identifier", e.Name)
	}

	visibility, err := schema.ParseVisibility(e.Visibility)
	if err != nil {
		return schema.Declaration{}, err
	}

	ext := schema.DefaultExtension
	if e.Extension != nil {
		ext = strings.TrimPrefix(strings.TrimSpace(*e.Extension), ".")
	}

	return schema.Declaration{
		Package:    strings.Trim(e.Package, "."),
		Name:       e.Name,
		GoPackage:  e.GoPackage,
		Visibility: visibility,
		Binding: schema.Binding{
			FileExtension:  ext,
			NormalizeSpace: e.NormalizeSpace,
		},
	}, nil
}

// entryLines returns the line of every item of the resources sequence
func entryLines(root *yaml.Node) []int {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "resources" {
			continue
		}
		seq := doc.Content[i+1]
		lines := make([]int, 0, len(seq.Content))
		for _, item := range seq.Content {
			lines = append(lines, item.Line)
		}
		return lines
	}
	return nil
}
