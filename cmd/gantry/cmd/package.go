package cmd

import (
	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/output"
	"github.com/gantryhq/gantry/internal/packaging"

	"github.com/spf13/cobra"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Build the source archive without deploying",
	RunE:  runPackage,
	Args:  cobra.NoArgs,
}

func init() {
	addConfigFlags(packageCmd)
	rootCmd.AddCommand(packageCmd)
}

func runPackage(_ *cobra.Command, _ []string) error {
	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return err
	}

	path, err := packaging.Archive(".", man.Name)
	if err != nil {
		return err
	}
	output.Success("Packaged %s", output.Bold(man.Name))
	output.KeyValue("Archive", path)
	return nil
}
