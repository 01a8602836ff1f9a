package engine

import (
	"fmt"

	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// claim is the pre-pass verdict for one declaration
type claim int

const (
	claimed   claim = iota // owns all of its targets
	repeated               // identical to an earlier declaration
	colliding              // plans a provider name or file owned by another declaration
)

// claimTargets gives every planned provider name and file to the first valid
// declaration that plans it. Later declarations planning the same name or
// file are reported as ConfigurationErrors; an exact repeat of an earlier
// declaration is only warned about. The pass runs in input order, so the
// owner never depends on scheduling.
func (e *Engine) claimTargets(decls []schema.Declaration) ([]claim, []error) {
	claims := make([]claim, len(decls))
	errs := make([]error, len(decls))

	names := make(map[string]int) // provider qualified name → owning index
	files := make(map[string]int) // provider file → owning index

	for i, decl := range decls {
		if decl.Validate() != nil {
			continue // process reports it
		}

		var conflict error
		for _, target := range e.cfg.Planner.Plan(decl) {
			owner, taken := names[target.QualifiedName]
			what := "provider " + target.QualifiedName
			if !taken {
				owner, taken = files[target.File]
				what = "file " + target.File
			}
			if !taken {
				continue
			}

			if sameDeclaration(decls[owner], decl) {
				claims[i] = repeated
				e.cfg.Reporter.Report(SeverityWarning, fmt.Sprintf(
					"%s is declared more than once (%s and %s); generating it once",
					decl.QualifiedName(), describeSource(decls[owner]), describeSource(decl)))
				break
			}
			conflict = fmt.Errorf("%s is already planned for %s", what, decls[owner].QualifiedName())
			break
		}

		switch {
		case claims[i] == repeated:
		case conflict != nil:
			claims[i] = colliding
			errs[i] = &ConfigurationError{Declaration: decl.QualifiedName(), Err: conflict}
			e.cfg.Reporter.Report(SeverityError, errs[i].Error())
		default:
			for _, target := range e.cfg.Planner.Plan(decl) {
				names[target.QualifiedName] = i
				files[target.File] = i
			}
		}
	}
	return claims, errs
}

// sameDeclaration compares everything but where the declaration was found
func sameDeclaration(a, b schema.Declaration) bool {
	a.Source, b.Source = "", ""
	return a == b
}

func describeSource(d schema.Declaration) string {
	if d.Source == "" {
		return "unknown source"
	}
	return d.Source
}
