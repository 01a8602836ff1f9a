package schema

import (
	"fmt"
	"go/token"
	"regexp"
	"strings"
)

// Visibility is the access level a declaration was marked with.
type Visibility int

const (
	Default Visibility = iota // package-visible
	Public
	Protected
	Private
)

// String returns the keyword for the visibility
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "default"
	}
}

// ParseVisibility converts a manifest or directive value into a Visibility.
// The empty string yields Default.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	case "", "default", "package":
		return Default, nil
	default:
		return Default, fmt.Errorf("unknown visibility %q (supported: public, protected, private, default)", s)
	}
}

// DefaultExtension is the resource extension used when a binding does not name one
const DefaultExtension = "txt"

// Binding says which resource file belongs to a declaration and how its
// embedded text is prepared.
type Binding struct {
	FileExtension  string // Resource file extension without the dot (e.g., "txt")
	NormalizeSpace bool   // Collapse whitespace runs in the embedded literal
}

var (
	extensionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	segmentPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
)

// Validate checks the binding. An empty extension is always an error.
func (b Binding) Validate() error {
	if b.FileExtension == "" {
		return &ValidationError{
			Field:      "extension",
			Message:    "file extension is required",
			Suggestion: fmt.Sprintf("use %q for plain text resources", DefaultExtension),
		}
	}
	if !extensionPattern.MatchString(b.FileExtension) {
		return &ValidationError{
			Field:   "extension",
			Message: fmt.Sprintf("invalid file extension %q", b.FileExtension),
			Suggestion: "extensions may contain letters, digits, '.', '_' and '-' " +
				"and must not start with a dot",
		}
	}
	return nil
}

// Declaration is a marked declaration with its resource binding.
type Declaration struct {
	Package    string // Dotted logical package (e.g., "com.acme")
	Name       string // Simple declaration name (e.g., "Greeting")
	GoPackage  string // Package clause for generated files (defaults to the last package segment)
	ImportPath string // Go import path of the package, when known
	Visibility Visibility
	Binding    Binding
	Source     string // Where the declaration was found (file:line or manifest entry)
}

// QualifiedName returns the package-qualified declaration name
func (d Declaration) QualifiedName() string {
	return Qualify(d.Package, d.Name)
}

// Dir returns the package as a slash-separated relative directory
func (d Declaration) Dir() string {
	return PackageDir(d.Package)
}

// ResourceName returns the resource file name relative to the package directory
func (d Declaration) ResourceName() string {
	return d.Name + "." + d.Binding.FileExtension
}

// ResourcePath returns the slash-separated resource path relative to a search root
func (d Declaration) ResourcePath() string {
	if d.Package == "" {
		return d.ResourceName()
	}
	return d.Dir() + "/" + d.ResourceName()
}

// PackageClause returns the Go package name used by generated files
func (d Declaration) PackageClause() string {
	if d.GoPackage != "" {
		return d.GoPackage
	}
	if i := strings.LastIndex(d.Package, "."); i >= 0 {
		return d.Package[i+1:]
	}
	return d.Package
}

// Validate checks everything needed to generate providers for the declaration
func (d Declaration) Validate() error {
	if !token.IsIdentifier(d.Name) {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("%q is not a valid Go identifier", d.Name),
		}
	}
	if d.Package != "" {
		for _, seg := range strings.Split(d.Package, ".") {
			if !segmentPattern.MatchString(seg) {
				return &ValidationError{
					Field:   "package",
					Message: fmt.Sprintf("invalid package segment %q in %q", seg, d.Package),
				}
			}
		}
	}
	if pkg := d.PackageClause(); !token.IsIdentifier(pkg) {
		return &ValidationError{
			Field:      "go_package",
			Message:    fmt.Sprintf("%q is not a valid Go package name", pkg),
			Suggestion: "set go_package explicitly",
		}
	}
	return d.Binding.Validate()
}

// Qualify joins a dotted package and a simple name
func Qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// SplitQualified splits a qualified name into its package and simple name
func SplitQualified(qualified string) (pkg, name string) {
	i := strings.LastIndex(qualified, ".")
	if i < 0 {
		return "", qualified
	}
	return qualified[:i], qualified[i+1:]
}

// PackageDir converts a dotted package into a slash-separated directory
func PackageDir(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// PackageFromDir converts a slash-separated directory into a dotted package
func PackageFromDir(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "." {
		return ""
	}
	return strings.ReplaceAll(dir, "/", ".")
}
