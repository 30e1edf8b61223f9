package cmd

import (
	"context"

	"github.com/gantryhq/gantry/internal/lifecycle"
	"github.com/gantryhq/gantry/internal/output"

	"github.com/spf13/cobra"
)

var destroyAll bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down the stage's deployed resources",
	Long: `Delete every declared resource of the active stage in reverse dependency
order: bindings first, then the function. Stored source archives survive unless
--all is given. Other stages are never touched.`,
	RunE: runDestroy,
	Args: cobra.NoArgs,
}

func init() {
	addConfigFlags(destroyCmd)
	destroyCmd.Flags().BoolVarP(&destroyAll, "all", "a", false, "Also purge the stage's stored source archives")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnvironment(cmd.Context(), "", "")
	if err != nil {
		return err
	}

	destroyer := lifecycle.NewDestroyer(env.registry, env.conv, env.env.Log)
	return destroyService(cmd.Context(), destroyer, destroyAll, env.stageLabel())
}

type destroyRunner interface {
	Destroy(ctx context.Context, purgeArtifacts bool) (*lifecycle.DestroyReport, error)
}

func destroyService(ctx context.Context, destroyer destroyRunner, purgeArtifacts bool, stage string) error {
	output.Info("Destroying stage %s", output.Bold(stage))

	report, err := destroyer.Destroy(ctx, purgeArtifacts)
	for _, rem := range report.Deleted {
		output.Success("deleted %s %s", rem.Kind, rem.Name)
	}
	if err != nil {
		return err
	}

	if len(report.Deleted) == 0 {
		output.Info("Nothing to destroy")
		return nil
	}
	output.Success("Destroyed %d resource(s)", len(report.Deleted))
	return nil
}
