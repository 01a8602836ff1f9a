package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/plan"
	"github.com/simonhull/firebird-suite/quill/internal/render"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// DefaultRuntimeImport is the package generated lazy providers load through
const DefaultRuntimeImport = "github.com/simonhull/firebird-suite/quill/pkg/textresource"

// Resolver reads the text of a resource
type Resolver interface {
	Resolve(pkg, baseName, ext string) (string, error)
}

// Renderer loads templates and renders them with bindings
type Renderer interface {
	Load(id render.TemplateID) (string, error)
	Render(id render.TemplateID, bindings render.Bindings) (string, error)
}

// Sink creates the file a provider is written to. The engine writes once to
// the returned writer and always closes it.
type Sink interface {
	Create(target plan.Target) (io.WriteCloser, error)
}

// Aborter is implemented by sink writers that can discard their content.
// When a write fails the engine aborts the writer before closing it, so the
// close must not commit anything.
type Aborter interface {
	Abort()
}

// Severity of a reported diagnostic
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Reporter receives diagnostics for failed declarations
type Reporter interface {
	Report(severity Severity, msg string)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(severity Severity, msg string)

func (f ReporterFunc) Report(severity Severity, msg string) {
	f(severity, msg)
}

// Config holds the collaborators of an Engine. Resolver and Sink are required.
type Config struct {
	Resolver      Resolver
	Renderer      Renderer      // Default: built-in templates
	Planner       *plan.Planner // Default: plan.NewPlanner()
	Registry      plan.Registry // Default: empty in-memory registry
	Sink          Sink
	Reporter      Reporter      // Default: logs through Logger
	Logger        logger.Logger // Default: silent
	Workers       int           // Declarations processed concurrently (default: runtime.NumCPU())
	RuntimeImport string        // Default: DefaultRuntimeImport
}

// Engine generates providers for marked declarations
type Engine struct {
	cfg Config
}

// New validates cfg and fills in defaults
func New(cfg Config) (*Engine, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("engine: resolver is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("engine: sink is required")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewRenderer()
	}
	if cfg.Planner == nil {
		cfg.Planner = plan.NewPlanner()
	}
	if cfg.Registry == nil {
		cfg.Registry = plan.NewMemoryRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewSilentLogger()
	}
	if cfg.Reporter == nil {
		log := cfg.Logger
		cfg.Reporter = ReporterFunc(func(severity Severity, msg string) {
			if severity == SeverityWarning {
				log.Warn(msg)
				return
			}
			log.Error(msg)
		})
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.RuntimeImport == "" {
		cfg.RuntimeImport = DefaultRuntimeImport
	}
	return &Engine{cfg: cfg}, nil
}

// Run generates the missing providers of every declaration.
//
// A declaration that fails is reported and does not stop the others; its
// failure is recorded in the returned Summary. A declaration whose providers
// collide with an earlier declaration's fails with a ConfigurationError. Run only returns an error when
// the template store is broken or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, decls []schema.Declaration) (*Summary, error) {
	for _, id := range []render.TemplateID{render.LazyLoading, render.EmbeddedLiteral} {
		if _, err := e.cfg.Renderer.Load(id); err != nil {
			return nil, err
		}
	}

	e.cfg.Logger.Info("generating providers",
		logger.F("declarations", len(decls)),
		logger.F("workers", e.cfg.Workers))

	results := make([]Result, len(decls))
	claims, conflicts := e.claimTargets(decls)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, decl := range decls {
		switch claims[i] {
		case repeated:
			results[i] = Result{Declaration: decl, Repeated: true}
			continue
		case colliding:
			results[i] = Result{Declaration: decl, Err: conflicts[i]}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Declaration: decl, Err: err}
				return err
			}
			results[i] = e.process(decl)
			return nil
		})
	}
	err := g.Wait()

	summary := summarize(results)
	e.cfg.Logger.Info("generation finished",
		logger.F("written", summary.Written),
		logger.F("skipped", summary.Skipped),
		logger.F("failed", summary.Failed))

	return summary, err
}

// process runs one declaration through planning and generation
func (e *Engine) process(decl schema.Declaration) Result {
	res := Result{Declaration: decl}
	log := e.cfg.Logger.WithFields(logger.F("declaration", decl.QualifiedName()))

	if err := decl.Validate(); err != nil {
		res.Err = &ConfigurationError{Declaration: decl.QualifiedName(), Err: err}
		e.cfg.Reporter.Report(SeverityError, res.Err.Error())
		return res
	}

	for _, target := range e.cfg.Planner.Plan(decl) {
		tr := TargetResult{Target: target}

		// Existence is checked before any resolution or rendering work
		if e.cfg.Registry.Lookup(target.QualifiedName) {
			tr.State = Skipped
			log.Debug("provider exists, skipping", logger.F("target", target.QualifiedName))
			res.Targets = append(res.Targets, tr)
			continue
		}

		if err := e.generate(target); err != nil {
			tr.State = Failed
			tr.Err = &TargetError{Declaration: decl, Target: target.QualifiedName, Err: err}
			e.cfg.Reporter.Report(SeverityError, tr.Err.Error())
		} else {
			tr.State = Written
			e.cfg.Registry.Record(target.QualifiedName)
			log.Info("generated provider",
				logger.F("target", target.QualifiedName),
				logger.F("strategy", target.Strategy),
				logger.F("file", target.File))
		}
		res.Targets = append(res.Targets, tr)
	}

	return res
}

// generate resolves, renders and writes one missing target
func (e *Engine) generate(target plan.Target) error {
	decl := target.Declaration

	text, err := e.cfg.Resolver.Resolve(decl.Package, decl.Name, decl.Binding.FileExtension)
	if err != nil {
		return err
	}

	// Only the embedded literal is normalized; lazy providers read the file as is
	if target.Strategy == plan.Embedded && decl.Binding.NormalizeSpace {
		text = NormalizeSpace(text)
	}

	src, err := e.cfg.Renderer.Render(target.Strategy.Template(), e.bindings(target, text))
	if err != nil {
		return err
	}

	formatted, err := render.FormatGo(target.File, []byte(src))
	if err != nil {
		return err
	}

	return e.write(target, formatted)
}

func (e *Engine) bindings(target plan.Target, text string) render.Bindings {
	decl := target.Declaration
	b := render.Bindings{
		render.Package:     render.Ident(decl.Package),
		render.GoPackage:   render.Ident(decl.PackageClause()),
		render.Name:        render.Ident(target.Name),
		render.Declaration: render.Ident(decl.QualifiedName()),
		render.Visibility:  render.Ident(target.Keyword),
		render.Resource:    render.Ident(decl.ResourceName()),
		render.Source:      render.Ident(decl.ResourcePath()),
		render.Dir:         render.Ident(decl.Dir()),
		render.Runtime:     render.Ident(e.cfg.RuntimeImport),
	}
	if target.Strategy == plan.Embedded {
		b[render.Text] = render.Literal(text)
	}
	return b
}

// write hands src to the sink, closing the writer on every path
func (e *Engine) write(target plan.Target, src []byte) (err error) {
	w, err := e.cfg.Sink.Create(target)
	if err != nil {
		return &WriteError{Target: target.QualifiedName, Err: err}
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = &WriteError{Target: target.QualifiedName, Err: cerr}
		}
	}()

	if _, err := w.Write(src); err != nil {
		if a, ok := w.(Aborter); ok {
			a.Abort()
		}
		return &WriteError{Target: target.QualifiedName, Err: fmt.Errorf("write: %w", err)}
	}
	return nil
}
