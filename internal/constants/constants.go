// Package constants defines global constants used throughout gantry.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of gantry.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool and application
const ProjectName = "gantry"

// ConfigDirName is the name of the per-application configuration directory,
// created next to the application manifest.
const ConfigDirName = ".gantry"

// ConfigFileName is the name of the per-application configuration file
const ConfigFileName = "config.json"

// ManifestFileName is the name of the application manifest
const ManifestFileName = "gantry.yaml"

// ConfigDirPath returns the full path to the application configuration directory.
func ConfigDirPath(appDir string) string {
	return appDir + "/" + ConfigDirName
}

// ConfigFilePath returns the full path to the application configuration file
func ConfigFilePath(appDir string) string {
	return ConfigDirPath(appDir) + "/" + ConfigFileName
}

// Environment variable names recognized by the config resolver. Explicit
// flags always take precedence over these.
const (
	EnvProject          = "GANTRY_PROJECT"
	EnvProjectFallback  = "GOOGLE_CLOUD_PROJECT"
	EnvLocation         = "GANTRY_LOCATION"
	EnvLocationFallback = "GOOGLE_CLOUD_LOCATION"
	EnvStage            = "GANTRY_STAGE"

	// EnvTaskIndex carries the task index for locally executed jobs. The
	// name matches what Cloud Run injects into job containers so job code
	// behaves identically in both environments.
	EnvTaskIndex = "CLOUD_RUN_TASK_INDEX"
)

// Environment represents the execution environment for logger configuration.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	CLI         Environment = "cli"
)

// DefaultRuntime is the Cloud Functions runtime used when the manifest does
// not name one.
const DefaultRuntime = "python311"

// DefaultEntryFile is the application entry point used when the manifest
// does not name one.
const DefaultEntryFile = "main.py"
