package cmd

import (
	"strings"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/output"
	"github.com/gantryhq/gantry/internal/runner"

	"github.com/spf13/cobra"
)

var localPort string

var localCmd = &cobra.Command{
	Use:   "local [target]",
	Short: "Run the function locally",
	Long: `Serve the application locally through the functions framework. The
target defaults to the manifest's entry point.`,
	RunE: runLocal,
	Args: cobra.MaximumNArgs(1),
}

func init() {
	localCmd.Flags().StringVar(&localPort, "port", "8080", "Port to serve on")
	rootCmd.AddCommand(localCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return err
	}

	target := strings.ReplaceAll(man.Name, "-", "_")
	if len(args) == 1 {
		target = args[0]
	}

	output.Info("Serving %s on port %s", output.Bold(target), localPort)
	launcher := runner.NewExecLauncher()
	out, err := launcher.Run(cmd.Context(), "functions-framework", []string{
		"--target", target,
		"--source", man.EntryFile,
		"--port", localPort,
		"--debug",
	}, nil)
	if len(out) > 0 {
		output.Println(string(out))
	}
	return err
}
