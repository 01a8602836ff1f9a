package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/quill/internal/output"
	"github.com/simonhull/firebird-suite/quill/internal/plan"
)

// PlanCmd creates and returns the 'plan' command, which lists the providers
// generate would consider and whether each one already exists
func PlanCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the providers of every marked declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				output.Error(err.Error())
				return err
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
				return nil
			}

			planner := &plan.Planner{EmbeddedSuffix: cfg.EmbeddedSuffix}
			registry := plan.NewDirRegistry(cfg.OutputRoot, log)

			var rows [][]string
			for _, decl := range found.decls {
				if err := decl.Validate(); err != nil {
					rows = append(rows, []string{decl.QualifiedName(), "-", "-", "-", "invalid: " + err.Error()})
					continue
				}
				for _, target := range planner.Plan(decl) {
					status := "missing"
					if registry.Lookup(target.QualifiedName) {
						status = "exists"
					}
					rows = append(rows, []string{
						decl.QualifiedName(),
						target.Name,
						target.Strategy.String(),
						target.File,
						status,
					})
				}
			}

			output.Table([]string{"Declaration", "Provider", "Strategy", "File", "Status"}, rows)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
