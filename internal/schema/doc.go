// Package schema defines the declarations quill generates providers for.
//
// A Declaration is a named, packaged Go declaration (or manifest entry) with
// a Binding that says which companion resource file belongs to it:
//
//	decl := schema.Declaration{
//	    Package:    "com.acme",
//	    Name:       "Greeting",
//	    Visibility: schema.Public,
//	    Binding:    schema.Binding{FileExtension: "txt", NormalizeSpace: true},
//	}
//	decl.QualifiedName() // com.acme.Greeting
//	decl.ResourcePath()  // com/acme/Greeting.txt
//
// Validation errors use ValidationError so callers can report the failing
// field alongside a suggestion.
package schema
