package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/output"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Scaffold a new application in the current directory",
	RunE:  runInit,
	Args:  cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const manifestTemplate = `name: %s
runtime: %s
entry_file: %s

routes:
  - path: /
    methods: [GET]
`

const entryTemplate = `def %s(request):
    return "hello from %s"
`

func runInit(_ *cobra.Command, args []string) error {
	name := args[0]

	files := map[string]string{
		constants.ManifestFileName: fmt.Sprintf(manifestTemplate,
			name, constants.DefaultRuntime, constants.DefaultEntryFile),
		constants.DefaultEntryFile: fmt.Sprintf(entryTemplate, entryTarget(name), name),
		constants.ConfigFilePath("."): `{
  "stages": {}
}
`,
	}

	if err := os.MkdirAll(constants.ConfigDirPath("."), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			output.Warning("%s already exists, leaving it alone", path)
			continue
		}
		if err := os.WriteFile(filepath.Clean(path), []byte(content), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
		output.Success("Created %s", path)
	}

	output.Blank()
	output.Info("Next: gantry deploy -p <project> -l <location>")
	return nil
}

// entryTarget converts the application name into a valid Python identifier.
func entryTarget(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r == '-' || r == ' ' {
			out[i] = '_'
		}
	}
	return string(out)
}
