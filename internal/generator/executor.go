package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ExecuteOptions configures execution behavior
type ExecuteOptions struct {
	DryRun bool
	Force  bool      // Replace existing files
	Writer io.Writer // Where to report operations (defaults to os.Stdout)
}

// Execute validates every operation before running any, so one conflicting
// provider file leaves the tree untouched. Each applied (or previewed)
// operation is reported on opts.Writer. It returns how many operations ran.
func Execute(ctx context.Context, ops []Operation, opts ExecuteOptions) (int, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	var invalid []error
	for _, op := range ops {
		if err := op.Validate(ctx, opts.Force); err != nil {
			invalid = append(invalid, err)
		}
	}
	if len(invalid) > 0 {
		return 0, fmt.Errorf("validation failed: %w", errors.Join(invalid...))
	}

	prefix := "✓ "
	if opts.DryRun {
		prefix = "✓ [DRY RUN] "
	}

	done := 0
	for _, op := range ops {
		if !opts.DryRun {
			if err := op.Execute(ctx); err != nil {
				return done, fmt.Errorf("execution failed after %d of %d operations: %w", done, len(ops), err)
			}
		}
		fmt.Fprintf(w, "%s%s\n", prefix, op.Description())
		done++
	}
	return done, nil
}
