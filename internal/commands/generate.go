package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/quill/internal/engine"
	"github.com/simonhull/firebird-suite/quill/internal/generator"
	"github.com/simonhull/firebird-suite/quill/internal/output"
	"github.com/simonhull/firebird-suite/quill/internal/plan"
	"github.com/simonhull/firebird-suite/quill/internal/resource"
)

// errFailed signals that failures were already reported
var errFailed = errors.New("generation failed")

// GenerateCmd creates and returns the 'generate' command
func GenerateCmd() *cobra.Command {
	var flags runFlags
	var dryRun bool
	var workers int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate missing text-resource providers",
		Long: `Generate writes the lazy and embedded providers of every marked declaration.

A provider that already exists in the output tree is skipped before its
resource is read. A declaration that fails is reported and does not stop
the others; the command exits with status 1 when anything failed.

Examples:
  quill generate
  quill generate --dry-run
  quill generate --source . --resources build/resources --out .
  quill generate --manifest texts.yml --no-scan --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				output.Error(err.Error())
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			log := newLogger(cfg)

			found, err := discoverDeclarations(cmd, cfg, log)
			if err != nil {
				output.Error(err.Error())
				return err
			}
			if found.problems != nil {
				output.Error(found.problems.Error())
			}
			if len(found.decls) == 0 {
				output.Info("No marked declarations found")
				if found.problems != nil {
					return errFailed
				}
				return nil
			}

			eng, err := engine.New(engine.Config{
				Resolver: resource.NewDirResolver(cfg.SourceRoot, cfg.ResourceRoot, log),
				Planner:  &plan.Planner{EmbeddedSuffix: cfg.EmbeddedSuffix},
				Registry: plan.NewDirRegistry(cfg.OutputRoot, log),
				Sink: &generator.FileSink{
					Root:   cfg.OutputRoot,
					DryRun: dryRun,
					Writer: cmd.OutOrStdout(),
				},
				Reporter: engine.ReporterFunc(func(severity engine.Severity, msg string) {
					if severity == engine.SeverityWarning {
						output.Warn(msg)
						return
					}
					output.Error(msg)
				}),
				Logger:        log,
				Workers:       cfg.Workers,
				RuntimeImport: cfg.RuntimeImport,
			})
			if err != nil {
				output.Error(err.Error())
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			summary, err := eng.Run(ctx, found.decls)
			if err != nil {
				output.Error(err.Error())
				return err
			}

			msg := fmt.Sprintf("Generated %d providers for %d declarations (%d already present)",
				summary.Written, len(found.decls), summary.Skipped)
			if dryRun {
				msg = "[DRY RUN] " + msg
			}

			if !summary.OK() || found.problems != nil {
				output.Warn(msg)
				if summary.Failed > 0 {
					output.Error(fmt.Sprintf("%d declarations failed", summary.Failed))
				}
				return errFailed
			}
			output.Success(msg)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the providers without writing files")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Declarations processed concurrently (default: one per CPU)")

	return cmd
}
