// Package gcp implements the resource handlers against the Google Cloud
// APIs: Cloud Functions, API Gateway, Pub/Sub, Cloud Scheduler, Eventarc,
// Cloud Run jobs, and Cloud Storage for packaged source artifacts.
//
// Each handler depends on a narrow API interface implemented by a thin
// adapter over the generated client, so tests fake the interface instead of
// the wire protocol.
package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gantryhq/gantry/internal/config"
	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/resource"

	"cloud.google.com/go/storage"
	apigatewayapi "google.golang.org/api/apigateway/v1"
	cloudfunctionsapi "google.golang.org/api/cloudfunctions/v2"
	cloudschedulerapi "google.golang.org/api/cloudscheduler/v1"
	eventarcapi "google.golang.org/api/eventarc/v1"
	"google.golang.org/api/option"
	pubsubapi "google.golang.org/api/pubsub/v1"
	runapi "google.golang.org/api/run/v2"
)

// Clients bundles the provider API clients the handlers are built from.
type Clients struct {
	Functions *cloudfunctionsapi.Service
	Gateways  *apigatewayapi.Service
	PubSub    *pubsubapi.Service
	Scheduler *cloudschedulerapi.Service
	Eventarc  *eventarcapi.Service
	Run       *runapi.Service
	Storage   *storage.Client
}

// NewClients constructs the API clients with application default credentials.
func NewClients(ctx context.Context, opts ...option.ClientOption) (*Clients, error) {
	functions, err := cloudfunctionsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloudfunctions client: %w", err)
	}
	gateways, err := apigatewayapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating apigateway client: %w", err)
	}
	pubsub, err := pubsubapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	scheduler, err := cloudschedulerapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloudscheduler client: %w", err)
	}
	eventarc, err := eventarcapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating eventarc client: %w", err)
	}
	runSvc, err := runapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloud run client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &Clients{
		Functions: functions,
		Gateways:  gateways,
		PubSub:    pubsub,
		Scheduler: scheduler,
		Eventarc:  eventarc,
		Run:       runSvc,
		Storage:   storageClient,
	}, nil
}

// Env groups what every handler needs: the resolved config, the application
// manifest, and the naming convention for the active stage.
type Env struct {
	Config   *config.Config
	Manifest *manifest.Manifest
	Conv     naming.Convention
	Log      *slog.Logger

	// ArchivePath is the local path of the packaged source archive. Only the
	// artifact handler reads it; commands that never upload leave it empty.
	ArchivePath string
}

// FunctionBase returns the base name of the deployed function: the stage
// override when present, the application name otherwise.
func (e Env) FunctionBase() string {
	if e.Config.FunctionName != "" {
		return e.Config.FunctionName
	}
	return e.Manifest.Name
}

// locationParent is the parent path for location-scoped resources.
func (e Env) locationParent() string {
	return fmt.Sprintf("projects/%s/locations/%s", e.Config.Project, e.Config.Location)
}

// artifactBase is the base name of the source artifact for this application.
func (e Env) artifactBase() string {
	return e.FunctionBase() + "-source"
}

// artifactObject is the storage object holding the packaged source for the
// active stage. The name is deterministic so a redeploy overwrites in place.
func (e Env) artifactObject() string {
	return e.Conv.RemoteName(e.artifactBase()) + archiveSuffix
}

// FunctionURL returns the deterministic HTTPS trigger URL for a deployed
// function. Bindings created before or after the function reference it by
// this URL, which is why the URL must not depend on deployment output.
func (e Env) FunctionURL(remoteName string) string {
	return fmt.Sprintf("https://%s-%s.cloudfunctions.net/%s",
		e.Config.Location, e.Config.Project, remoteName)
}

// NewRegistry wires one handler per resource kind into a registry.
func NewRegistry(env Env, clients *Clients) (*resource.Registry, error) {
	return resource.NewRegistry(
		NewArtifactHandler(env, &storageBucket{
			bucket:  clients.Storage.Bucket(env.Config.ArtifactBucket),
			project: env.Config.Project,
		}),
		NewFunctionHandler(env, &functionsService{svc: clients.Functions}),
		NewGatewayHandler(env, &gatewaysService{svc: clients.Gateways}),
		NewSubscriptionHandler(env, &subscriptionsService{svc: clients.PubSub}),
		NewScheduleHandler(env, &schedulerService{svc: clients.Scheduler}),
		NewStorageTriggerHandler(env, &eventarcService{svc: clients.Eventarc}),
		NewJobHandler(env, &runJobsService{svc: clients.Run}),
	)
}

// Resources created by this tool carry an ownership label. Listing filters
// on it so foreign resources in the same project are never touched; stage
// attribution still goes through the naming convention.
const (
	managedByLabel = "managed-by"
	stageLabel     = "stage"
)

func (e Env) managedLabels() map[string]string {
	labels := map[string]string{managedByLabel: constants.ProjectName}
	if stage := e.Conv.Stage(); stage != "" {
		labels[stageLabel] = stage
	}
	return labels
}
