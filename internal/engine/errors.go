package engine

import (
	"fmt"

	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// ConfigurationError reports a declaration whose binding cannot be generated
type ConfigurationError struct {
	Declaration string
	Err         error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid resource binding for %s: %v", e.Declaration, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure handing a provider to the sink
type WriteError struct {
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Target, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// TargetError ties a target failure to the declaration it was planned for
type TargetError struct {
	Declaration schema.Declaration
	Target      string
	Err         error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: generating %s: %v", e.Declaration.QualifiedName(), e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
