package cmd

import (
	"context"
	"errors"

	"github.com/gantryhq/gantry/internal/constants"
	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/lifecycle"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/output"
	"github.com/gantryhq/gantry/internal/packaging"
	"github.com/gantryhq/gantry/internal/resource"

	"github.com/spf13/cobra"
)

var (
	deployForce      bool
	deployDryRun     bool
	deploySkipFn     bool
	deployOnlyFn     bool
	deployConfigJSON string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the application and its resources",
	Long: `Deploy the packaged source, the function, and every declared binding
(gateway, subscriptions, schedules, storage triggers, jobs) in dependency order.
Without --force, a resource that already exists remotely aborts the whole plan.`,
	RunE: runDeploy,
	Args: cobra.NoArgs,
}

func init() {
	addConfigFlags(deployCmd)
	deployCmd.Flags().BoolVarP(&deployForce, "force", "f", false, "Overwrite resources that already exist remotely")
	deployCmd.Flags().BoolVar(&deployDryRun, "dryrun", false, "Validate and print the plan without applying it")
	deployCmd.Flags().BoolVar(&deploySkipFn, "skip-function", false, "Deploy only the bindings, not the source or the function")
	deployCmd.Flags().BoolVar(&deployOnlyFn, "only-function", false, "Deploy only the source and the function")
	deployCmd.Flags().StringVar(&deployConfigJSON, "config-from-json-string", "", "JSON document merged over the config file")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	opts := lifecycle.DeployOptions{
		Force:  deployForce,
		DryRun: deployDryRun,
	}
	if deploySkipFn {
		opts.Skip = []resource.Kind{resource.KindArtifact, resource.KindFunction}
	}
	if deployOnlyFn {
		opts.Only = []resource.Kind{resource.KindArtifact, resource.KindFunction}
	}

	archivePath := ""
	if !deploySkipFn && !deployDryRun {
		man, err := manifest.Load(constants.ManifestFileName)
		if err != nil {
			return err
		}
		output.Info("Packaging %s...", output.Bold(man.Name))
		archivePath, err = packaging.Archive(".", man.Name)
		if err != nil {
			return err
		}
	}

	env, err := resolveEnvironment(cmd.Context(), deployConfigJSON, archivePath)
	if err != nil {
		return err
	}

	deployer := lifecycle.NewDeployer(env.registry, env.conv, env.env.Log)
	return deployService(cmd.Context(), deployer, opts, env.stageLabel())
}

// deployRunner lets tests drive the command output with a fake orchestrator.
type deployRunner interface {
	Deploy(ctx context.Context, opts lifecycle.DeployOptions) (*lifecycle.DeployResult, error)
}

func deployService(ctx context.Context, deployer deployRunner, opts lifecycle.DeployOptions, stage string) error {
	output.Info("Deploying stage %s", output.Bold(stage))

	result, err := deployer.Deploy(ctx, opts)
	if err != nil {
		var partial *apperrors.PartialDeploymentError
		if errors.As(err, &partial) {
			output.Error("Deployment failed at %s", partial.Failed)
			if len(partial.Applied) > 0 {
				output.Warning("Applied before the failure (not rolled back):")
				output.List(partial.Applied)
			}
		}
		return err
	}

	if opts.DryRun {
		output.Warning("Dry-run: nothing was applied")
		for _, step := range result.Plan {
			output.Info("would %s", step.Description())
		}
		return nil
	}

	for _, step := range result.Applied {
		output.Success("%s", step.Description())
	}
	output.Success("Deployed %d resource(s)", len(result.Applied))
	return nil
}

// stageLabel names the active stage for user-facing messages.
func (e *environment) stageLabel() string {
	if e.conv.Stage() == "" {
		return "(unstaged)"
	}
	return e.conv.Stage()
}
