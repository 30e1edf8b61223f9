// Package config resolves the immutable configuration for one invocation.
// It uses Viper to merge explicit flags, environment variables, the
// application's .gantry/config.json, and per-stage overrides, in that
// precedence order. The resulting Config value is built once and passed by
// parameter through every component; nothing reads process-global state
// afterwards.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gantryhq/gantry/internal/constants"
	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/runner"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StageOverride holds per-stage settings. FunctionName is stored with the
// stage suffix already applied (the format `stage create` writes); the
// resolver strips the suffix back off so handlers only ever see base names.
type StageOverride struct {
	FunctionName string `mapstructure:"function_name" json:"function_name"`
	Project      string `mapstructure:"project" json:"project,omitempty"`
	Location     string `mapstructure:"location" json:"location,omitempty"`
}

// Config is the resolved configuration. Project and Location are required
// before any remote operation.
type Config struct {
	Project  string `mapstructure:"project" validate:"required"`
	Location string `mapstructure:"location" validate:"required"`
	Stage    string `mapstructure:"stage"`

	// FunctionName is the base name of the deployed function, after any
	// stage override has been applied and de-suffixed.
	FunctionName string `mapstructure:"function_name"`

	// ArtifactBucket stores packaged source archives. Defaults to a
	// project-scoped bucket name.
	ArtifactBucket string `mapstructure:"artifact_bucket"`

	Stages map[string]StageOverride `mapstructure:"stages"`
}

// Options carries explicit flag values into Resolve. Empty fields fall
// through to environment variables and the config file.
type Options struct {
	// Dir is the application directory holding .gantry/config.json.
	Dir      string
	Project  string
	Location string
	Stage    string

	// ConfigJSON is a raw JSON document merged over the config file
	// (--config-from-json-string).
	ConfigJSON string

	// Launcher resolves the gcloud CLI default project when nothing else
	// names one. Nil disables the fallback.
	Launcher runner.Launcher
}

var validate = validator.New()

// Resolve builds the configuration for one invocation or fails with an
// error naming the first absent required field. An unknown stage fails here,
// before any remote call.
func Resolve(ctx context.Context, opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if err := readConfigFile(v, opts.Dir); err != nil {
		return nil, err
	}

	if opts.ConfigJSON != "" {
		if err := v.MergeConfig(strings.NewReader(opts.ConfigJSON)); err != nil {
			return nil, fmt.Errorf("error parsing --config-from-json-string: %w", err)
		}
	}

	bindEnvVars(v)

	// Explicit flags take precedence over everything.
	if opts.Project != "" {
		v.Set("project", opts.Project)
	}
	if opts.Location != "" {
		v.Set("location", opts.Location)
	}
	if opts.Stage != "" {
		v.Set("stage", opts.Stage)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Project == "" {
		cfg.Project = gcloudDefaultProject(ctx, opts.Launcher)
	}
	if cfg.Project == "" {
		return nil, apperrors.MissingConfig("project")
	}
	if cfg.Location == "" {
		return nil, apperrors.MissingConfig("location")
	}

	if err := applyStageOverride(&cfg); err != nil {
		return nil, err
	}

	if cfg.ArtifactBucket == "" {
		cfg.ArtifactBucket = fmt.Sprintf("%s-%s-artifacts", constants.ProjectName, cfg.Project)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// StageNames returns the configured stage names, sorted.
func (c *Config) StageNames() []string {
	names := make([]string, 0, len(c.Stages))
	for name := range c.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readConfigFile(v *viper.Viper, dir string) error {
	if dir == "" {
		dir = "."
	}
	v.SetConfigFile(constants.ConfigFilePath(dir))

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine: env vars and flags can carry everything.
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error loading config file: %w", err)
	}
	return nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("project", constants.EnvProject, constants.EnvProjectFallback)
	_ = v.BindEnv("location", constants.EnvLocation, constants.EnvLocationFallback)
	_ = v.BindEnv("stage", constants.EnvStage)
}

// gcloudDefaultProject asks the gcloud CLI for its configured project. Any
// failure resolves to "" and surfaces later as MissingConfig.
func gcloudDefaultProject(ctx context.Context, launcher runner.Launcher) string {
	if launcher == nil {
		return ""
	}
	out, err := launcher.Run(ctx, "gcloud", []string{"config", "get-value", "project", "--quiet"}, nil)
	if err != nil {
		return ""
	}
	project := strings.TrimSpace(string(out))
	if project == "(unset)" {
		return ""
	}
	return project
}

func applyStageOverride(cfg *Config) error {
	if cfg.Stage == "" {
		return nil
	}
	if err := naming.ValidateStage(cfg.Stage); err != nil {
		return fmt.Errorf("invalid stage: %w", err)
	}
	override, ok := cfg.Stages[cfg.Stage]
	if !ok {
		return apperrors.UnknownStage(cfg.Stage, cfg.StageNames())
	}
	if override.Project != "" {
		cfg.Project = override.Project
	}
	if override.Location != "" {
		cfg.Location = override.Location
	}
	if override.FunctionName != "" {
		// The file stores the suffixed remote name; handlers need the base.
		base, found := strings.CutSuffix(override.FunctionName, naming.Separator+cfg.Stage)
		if !found {
			base = override.FunctionName
		}
		cfg.FunctionName = base
	}
	return nil
}

// rawConfig mirrors the config.json document for read-modify-write
// operations. Viper lowercases keys on write, so stage mutation goes through
// encoding/json to preserve the user's file verbatim.
type rawConfig map[string]json.RawMessage

// ListStages returns the stage names recorded in config.json.
func ListStages(dir string) ([]string, error) {
	raw, err := readRawConfig(dir)
	if err != nil {
		return nil, err
	}
	stagesDoc, ok := raw["stages"]
	if !ok {
		return nil, nil
	}
	var stages map[string]StageOverride
	if err := json.Unmarshal(stagesDoc, &stages); err != nil {
		return nil, fmt.Errorf("error parsing stages: %w", err)
	}
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateStage records a new stage in config.json with the suffixed function
// name. It returns false with no error when the stage already exists; the
// mapping is never overwritten.
func CreateStage(dir, stage, functionName string) (bool, error) {
	if err := naming.ValidateStage(stage); err != nil {
		return false, err
	}

	raw, err := readRawConfig(dir)
	if err != nil {
		return false, err
	}

	stages := map[string]StageOverride{}
	if stagesDoc, ok := raw["stages"]; ok {
		if err := json.Unmarshal(stagesDoc, &stages); err != nil {
			return false, fmt.Errorf("error parsing stages: %w", err)
		}
	}
	if _, exists := stages[stage]; exists {
		return false, nil
	}
	stages[stage] = StageOverride{FunctionName: functionName}

	stagesDoc, err := json.Marshal(stages)
	if err != nil {
		return false, err
	}
	raw["stages"] = stagesDoc

	return true, writeRawConfig(dir, raw)
}

func readRawConfig(dir string) (rawConfig, error) {
	if dir == "" {
		dir = "."
	}
	data, err := os.ReadFile(constants.ConfigFilePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return rawConfig{}, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return raw, nil
}

func writeRawConfig(dir string, raw rawConfig) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(constants.ConfigDirPath(dir), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	path := constants.ConfigFilePath(dir)
	if err := os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
