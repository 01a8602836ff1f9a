// Package generator writes rendered providers to disk.
//
// Every write is an Operation that is validated before it runs, so a
// provider file that already exists is never overwritten:
//
//	op := &generator.WriteFileOp{Path: "com/acme/greeting_provider.go", Content: src, Mode: 0644}
//	_, err := generator.Execute(ctx, []generator.Operation{op}, generator.ExecuteOptions{})
//
// FileSink adapts this to the engine: each provider gets a buffered writer
// whose Close validates and executes the write, or only reports it in dry-run
// mode.
package generator
