package cmd

import (
	"github.com/gantryhq/gantry/internal/config"
	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/output"

	"github.com/spf13/cobra"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Manage deployment stages",
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stages defined in config",
	RunE:  runStageList,
	Args:  cobra.NoArgs,
}

var stageCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Record a new stage in config",
	Long: `Record a new stage in .gantry/config.json with its stage-suffixed
function name. Creating a stage performs no remote operation; the first
deploy with --stage does.`,
	RunE: runStageCreate,
	Args: cobra.ExactArgs(1),
}

func init() {
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageCreateCmd)
	rootCmd.AddCommand(stageCmd)
}

func runStageList(_ *cobra.Command, _ []string) error {
	stages, err := config.ListStages(".")
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		output.Info("No stages defined")
		return nil
	}
	output.Header("Stages")
	output.List(stages)
	return nil
}

func runStageCreate(_ *cobra.Command, args []string) error {
	stage := args[0]

	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return err
	}

	// The file records the suffixed remote name, which is what the stage's
	// function will actually be called.
	functionName := man.Name + naming.Separator + stage
	created, err := config.CreateStage(".", stage, functionName)
	if err != nil {
		return err
	}
	if !created {
		output.Warning("Stage %s already exists", output.Bold(stage))
		return nil
	}
	output.Success("Created stage %s", output.Bold(stage))
	output.KeyValue("Function name", functionName)
	return nil
}
