package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/quill/internal/config"
	"github.com/simonhull/firebird-suite/quill/internal/discover"
	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/output"
	"github.com/simonhull/firebird-suite/quill/internal/project"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// runFlags are the flags shared by generate and plan
type runFlags struct {
	manifest       string
	source         string
	resources      string
	out            string
	embeddedSuffix string
	noScan         bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "Manifest listing marked declarations")
	cmd.Flags().StringVar(&f.source, "source", "", "Source root, searched first for resources and scanned for directives")
	cmd.Flags().StringVar(&f.resources, "resources", "", "Secondary resource root, searched when a resource is missing from the source root")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output root for generated providers")
	cmd.Flags().StringVar(&f.embeddedSuffix, "embedded-suffix", "", "Suffix of embedded providers")
	cmd.Flags().BoolVar(&f.noScan, "no-scan", false, "Do not scan Go source for //quill:resource directives")
}

// loadConfig reads quill.yml and applies the flags that were set
func (f *runFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		output.Verbose(fmt.Sprintf("Using config %s", cfg.Path))
	}

	flags := cmd.Flags()
	if flags.Changed("manifest") {
		cfg.Manifest = f.manifest
	}
	if flags.Changed("source") {
		cfg.SourceRoot = f.source
	}
	if flags.Changed("resources") {
		cfg.ResourceRoot = f.resources
	}
	if flags.Changed("out") {
		cfg.OutputRoot = f.out
	}
	if flags.Changed("embedded-suffix") {
		cfg.EmbeddedSuffix = f.embeddedSuffix
	}
	if f.noScan {
		cfg.Scan = false
	}

	return cfg, cfg.Validate()
}

// newLogger creates the structured logger for a run. --verbose lowers the
// level to debug.
func newLogger(cfg *config.Config) logger.Logger {
	level, _ := logger.ParseLevel(cfg.LogLevel)
	log := logger.NewLogger(level, os.Stderr)
	if output.IsVerbose() {
		log.SetLevel(logger.LevelDebug)
	}
	return log
}

// discovery holds the declarations found for a run
type discovery struct {
	decls    []schema.Declaration
	problems error // malformed directives, reported but not fatal
}

// discoverDeclarations collects declarations from the manifest and the source
// scan. A missing manifest is only an error when it was named explicitly.
//
// Malformed directives are kept as problems next to the declarations that
// could be read. Any other failure aborts discovery.
func discoverDeclarations(cmd *cobra.Command, cfg *config.Config, log logger.Logger) (*discovery, error) {
	var manifestDecls []schema.Declaration
	if cfg.Manifest != "" {
		decls, err := discover.LoadManifest(cfg.Manifest)
		switch {
		case err == nil:
			manifestDecls = decls
			output.Verbose(fmt.Sprintf("Read %d declarations from %s", len(decls), cfg.Manifest))
		case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("manifest"):
			output.Verbose(fmt.Sprintf("No manifest at %s", cfg.Manifest))
		default:
			return nil, err
		}
	}

	var scanned []schema.Declaration
	found := &discovery{}
	if cfg.Scan {
		opts := discover.ScanOptions{Logger: log}
		if mod, err := project.FindModule(cfg.SourceRoot); err == nil {
			if importPath, err := mod.ImportPath(cfg.SourceRoot); err == nil {
				opts.ModulePath = importPath
			}
		} else {
			output.Verbose(fmt.Sprintf("Import paths unknown: %v", err))
		}

		decls, err := discover.ScanSource(cfg.SourceRoot, opts)
		var verrs schema.ValidationErrors
		if err != nil && !errors.As(err, &verrs) {
			return nil, err
		}
		scanned, found.problems = decls, err
		output.Verbose(fmt.Sprintf("Found %d marked declarations in %s", len(decls), cfg.SourceRoot))
	}

	found.decls = discover.Merge(manifestDecls, scanned)
	return found, nil
}
