package cmd

import (
	"context"

	"github.com/gantryhq/gantry/internal/lifecycle"
	"github.com/gantryhq/gantry/internal/output"

	"github.com/spf13/cobra"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Delete remote resources the manifest no longer declares",
	Long: `Discover the stage's remote resources by naming convention, diff them
against the manifest, and delete the orphans. Resources of other stages and
resources not created by this tool are never touched.`,
	RunE: runSync,
	Args: cobra.NoArgs,
}

func init() {
	addConfigFlags(syncCmd)
	syncCmd.Flags().BoolVarP(&syncDryRun, "dryrun", "d", false, "Report orphans without deleting them")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnvironment(cmd.Context(), "", "")
	if err != nil {
		return err
	}

	reconciler := lifecycle.NewReconciler(env.registry, env.conv, env.env.Log)
	return syncService(cmd.Context(), reconciler, syncDryRun, env.stageLabel())
}

type syncRunner interface {
	Sync(ctx context.Context, dryRun bool) (*lifecycle.SyncReport, error)
}

func syncService(ctx context.Context, reconciler syncRunner, dryRun bool, stage string) error {
	output.Info("Syncing stage %s", output.Bold(stage))

	report, err := reconciler.Sync(ctx, dryRun)
	if report != nil {
		if len(report.Orphans) == 0 {
			output.Success("No orphaned resources")
		} else if dryRun {
			output.Warning("Dry-run: %d orphaned resource(s) would be deleted:", len(report.Orphans))
			for _, orphan := range report.Orphans {
				output.Info("would delete %s %s", orphan.Kind, orphan.Name)
			}
		} else {
			for _, deleted := range report.Deleted {
				output.Success("deleted %s %s", deleted.Kind, deleted.Name)
			}
		}
	}
	return err
}
