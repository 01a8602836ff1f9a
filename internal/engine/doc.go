// Package engine generates text-resource providers for marked declarations.
//
// For each declaration the engine plans two providers: a lazy one that loads
// the resource at runtime and an embedded one that carries the resource text
// as a literal. Each provider moves through
//
//	planned → skipped                          (already exists)
//	planned → resolved → rendered → written    (missing)
//
// Before any provider is generated, every planned provider name and file is
// claimed by the first declaration that plans it; later declarations that
// plan the same name or file fail with a ConfigurationError.
//
// A failure is reported through the configured Reporter and the run moves on
// to the next declaration. Only a broken template store aborts the batch.
//
//	eng, err := engine.New(engine.Config{
//	    Resolver: resource.NewDirResolver(".", "build/resources", log),
//	    Registry: plan.NewDirRegistry(".", log),
//	    Sink:     &generator.FileSink{Root: "."},
//	})
//	summary, err := eng.Run(ctx, decls)
package engine
