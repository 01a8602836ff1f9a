package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in      string
		want    Visibility
		wantErr bool
	}{
		{in: "public", want: Public},
		{in: "PROTECTED", want: Protected},
		{in: " private ", want: Private},
		{in: "default", want: Default},
		{in: "package", want: Default},
		{in: "", want: Default},
		{in: "internal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVisibility(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeclarationNames(t *testing.T) {
	decl := Declaration{
		Package: "com.acme",
		Name:    "Greeting",
		Binding: Binding{FileExtension: "txt"},
	}

	assert.Equal(t, "com.acme.Greeting", decl.QualifiedName())
	assert.Equal(t, "com/acme", decl.Dir())
	assert.Equal(t, "Greeting.txt", decl.ResourceName())
	assert.Equal(t, "com/acme/Greeting.txt", decl.ResourcePath())
	assert.Equal(t, "acme", decl.PackageClause())

	root := Declaration{Name: "Banner", GoPackage: "main", Binding: Binding{FileExtension: "md"}}
	assert.Equal(t, "Banner", root.QualifiedName())
	assert.Equal(t, "Banner.md", root.ResourcePath())
	assert.Equal(t, "main", root.PackageClause())
}

func TestDeclarationValidate(t *testing.T) {
	valid := Declaration{Package: "com.acme", Name: "Greeting", Binding: Binding{FileExtension: "txt"}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mut   func(d *Declaration)
		field string
	}{
		{"empty extension", func(d *Declaration) { d.Binding.FileExtension = "" }, "extension"},
		{"dotted extension", func(d *Declaration) { d.Binding.FileExtension = ".txt" }, "extension"},
		{"extension with separator", func(d *Declaration) { d.Binding.FileExtension = "a/b" }, "extension"},
		{"bad name", func(d *Declaration) { d.Name = "9lives" }, "name"},
		{"bad package segment", func(d *Declaration) { d.Package = "com..acme" }, "package"},
		{"bad go package", func(d *Declaration) { d.Package = "com.my-pkg" }, "go_package"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := valid
			tt.mut(&decl)

			err := decl.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestQualifyHelpers(t *testing.T) {
	pkg, name := SplitQualified("com.acme.GreetingProvider")
	assert.Equal(t, "com.acme", pkg)
	assert.Equal(t, "GreetingProvider", name)

	pkg, name = SplitQualified("Banner")
	assert.Empty(t, pkg)
	assert.Equal(t, "Banner", name)

	assert.Equal(t, "com.acme", PackageFromDir("com/acme"))
	assert.Equal(t, "", PackageFromDir("."))
	assert.Equal(t, "com/acme", PackageDir("com.acme"))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.OrNil())

	errs = append(errs, ValidationError{Field: "resources[0].name", Message: "name is required"})
	assert.Equal(t, "validation error at resources[0].name: name is required", errs.Error())

	errs = append(errs, ValidationError{Field: "kind", Message: "kind is required", Line: 2})
	assert.Contains(t, errs.Error(), "found 2 validation errors")
	assert.Contains(t, errs.Error(), "(line 2)")
}
