package cmd

import (
	"fmt"
	"os"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/convert"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/openapi"
	"github.com/gantryhq/gantry/internal/output"

	"github.com/spf13/cobra"
)

var (
	openapiVersion int
	openapiOut     string
)

var openapiCmd = &cobra.Command{
	Use:   "openapi <backend-url>",
	Short: "Generate the gateway API specification for the declared routes",
	Long: `Generate the OpenAPI document the gateway would be configured with,
pointing at the given backend URL. Version 2 is what API Gateway consumes;
--version 3 converts through the swagger converter service.`,
	RunE: runOpenapi,
	Args: cobra.ExactArgs(1),
}

func init() {
	openapiCmd.Flags().IntVar(&openapiVersion, "version", 2, "OpenAPI version to emit (2 or 3)")
	openapiCmd.Flags().StringVarP(&openapiOut, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(openapiCmd)
}

func runOpenapi(cmd *cobra.Command, args []string) error {
	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return err
	}

	doc, err := openapi.Render(man, args[0])
	if err != nil {
		return err
	}

	switch openapiVersion {
	case 2:
	case 3:
		doc, err = convert.NewHTTPConverter().ToV3(cmd.Context(), doc)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported openapi version %d (use 2 or 3)", openapiVersion)
	}

	if openapiOut == "" {
		fmt.Fprint(output.Stdout, string(doc))
		return nil
	}
	if err := os.WriteFile(openapiOut, doc, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", openapiOut, err)
	}
	output.Success("Wrote %s", openapiOut)
	return nil
}
