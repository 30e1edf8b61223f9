package cmd

import (
	"context"
	"log/slog"

	"github.com/gantryhq/gantry/internal/config"
	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/providers/gcp"
	"github.com/gantryhq/gantry/internal/resource"
	"github.com/gantryhq/gantry/internal/runner"

	"github.com/spf13/cobra"
)

// Shared config flag values. Commands opt in through addConfigFlags.
var (
	flagProject  string
	flagLocation string
	flagStage    string
)

func addConfigFlags(c *cobra.Command) {
	c.Flags().StringVarP(&flagProject, "project", "p", "", "Google Cloud project id")
	c.Flags().StringVarP(&flagLocation, "location", "l", "", "Google Cloud region (e.g. us-central1)")
	c.Flags().StringVarP(&flagStage, "stage", "s", "", "Stage to operate on")
}

// environment bundles everything a remote command needs for one invocation.
type environment struct {
	cfg      *config.Config
	man      *manifest.Manifest
	conv     naming.Convention
	env      gcp.Env
	registry *resource.Registry
}

// resolveLocal resolves config and manifest without touching any remote API.
// Commands that never leave the machine (stage, package, local) stop here.
func resolveLocal(ctx context.Context, configJSON string) (*config.Config, *manifest.Manifest, naming.Convention, error) {
	cfg, err := config.Resolve(ctx, config.Options{
		Project:    flagProject,
		Location:   flagLocation,
		Stage:      flagStage,
		ConfigJSON: configJSON,
		Launcher:   &runner.ExecLauncher{},
	})
	if err != nil {
		return nil, nil, naming.Convention{}, err
	}
	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return nil, nil, naming.Convention{}, err
	}
	return cfg, man, naming.New(cfg.Stage, cfg.StageNames()), nil
}

// resolveEnvironment resolves config and manifest and builds the provider
// handler registry. archivePath may be empty for commands that never upload.
func resolveEnvironment(ctx context.Context, configJSON, archivePath string) (*environment, error) {
	cfg, man, conv, err := resolveLocal(ctx, configJSON)
	if err != nil {
		return nil, err
	}

	clients, err := gcp.NewClients(ctx)
	if err != nil {
		return nil, err
	}
	env := gcp.Env{
		Config:      cfg,
		Manifest:    man,
		Conv:        conv,
		Log:         slog.Default(),
		ArchivePath: archivePath,
	}
	registry, err := gcp.NewRegistry(env, clients)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, man: man, conv: conv, env: env, registry: registry}, nil
}
