package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/resource"

	cloudfunctionsapi "google.golang.org/api/cloudfunctions/v2"
)

// pollInterval paces long-running operation polling across the handlers.
const pollInterval = 2 * time.Second

// functionsAPI is the slice of Cloud Functions the function handler needs.
// Mutations block until the underlying operation finishes.
type functionsAPI interface {
	List(ctx context.Context, parent string) ([]*cloudfunctionsapi.Function, error)
	Create(ctx context.Context, parent, functionID string, fn *cloudfunctionsapi.Function) error
	Patch(ctx context.Context, name string, fn *cloudfunctionsapi.Function) error
	Delete(ctx context.Context, name string) error
}

type functionsService struct {
	svc *cloudfunctionsapi.Service
}

func (s *functionsService) List(ctx context.Context, parent string) ([]*cloudfunctionsapi.Function, error) {
	var out []*cloudfunctionsapi.Function
	call := s.svc.Projects.Locations.Functions.List(parent)
	err := call.Pages(ctx, func(resp *cloudfunctionsapi.ListFunctionsResponse) error {
		out = append(out, resp.Functions...)
		return nil
	})
	return out, err
}

func (s *functionsService) Create(ctx context.Context, parent, functionID string, fn *cloudfunctionsapi.Function) error {
	op, err := s.svc.Projects.Locations.Functions.Create(parent, fn).
		FunctionId(functionID).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *functionsService) Patch(ctx context.Context, name string, fn *cloudfunctionsapi.Function) error {
	op, err := s.svc.Projects.Locations.Functions.Patch(name, fn).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *functionsService) Delete(ctx context.Context, name string) error {
	op, err := s.svc.Projects.Locations.Functions.Delete(name).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

// await polls the operation until it completes or ctx expires.
func (s *functionsService) await(ctx context.Context, opName string) error {
	for {
		op, err := s.svc.Projects.Locations.Operations.Get(opName).Context(ctx).Do()
		if err != nil {
			return err
		}
		if op.Done {
			if op.Error != nil {
				return fmt.Errorf("operation %s failed: %s", opName, op.Error.Message)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FunctionHandler manages the single HTTP-triggered function that serves the
// application. Every other binding (gateway, subscription, schedule, storage
// trigger) targets it by its deterministic URL.
type FunctionHandler struct {
	env Env
	api functionsAPI
}

func NewFunctionHandler(env Env, api functionsAPI) *FunctionHandler {
	return &FunctionHandler{env: env, api: api}
}

func (h *FunctionHandler) Kind() resource.Kind { return resource.KindFunction }

func (h *FunctionHandler) Declared() []resource.Declared {
	return []resource.Declared{{
		Kind: resource.KindFunction,
		Name: h.env.FunctionBase(),
	}}
}

func (h *FunctionHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var fns []*cloudfunctionsapi.Function
	err := withRetry(ctx, h.env.Log, "list functions", func() error {
		var listErr error
		fns, listErr = h.api.List(ctx, h.env.locationParent())
		return wrapRemote("list", "function", h.env.locationParent(), listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, fn := range fns {
		if fn.Labels[managedByLabel] != constants.ProjectName {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindFunction,
			Name: lastSegment(fn.Name),
			ID:   fn.Name,
		})
	}
	return remotes, nil
}

func (h *FunctionHandler) Create(ctx context.Context, d resource.Declared) error {
	remoteName := h.env.Conv.RemoteName(d.Name)
	fn := h.desired(remoteName)
	return withRetry(ctx, h.env.Log, "create function", func() error {
		return wrapRemote("create", "function", remoteName,
			h.api.Create(ctx, h.env.locationParent(), remoteName, fn))
	})
}

func (h *FunctionHandler) Update(ctx context.Context, d resource.Declared) error {
	remoteName := h.env.Conv.RemoteName(d.Name)
	fn := h.desired(remoteName)
	name := h.functionName(remoteName)
	return withRetry(ctx, h.env.Log, "update function", func() error {
		return wrapRemote("update", "function", remoteName, h.api.Patch(ctx, name, fn))
	})
}

func (h *FunctionHandler) Delete(ctx context.Context, remoteName string) error {
	name := h.functionName(remoteName)
	return withRetry(ctx, h.env.Log, "delete function", func() error {
		err := h.api.Delete(ctx, name)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "function", remoteName, err)
	})
}

func (h *FunctionHandler) functionName(remoteName string) string {
	return h.env.locationParent() + "/functions/" + remoteName
}

// desired builds the full function definition for the active stage. The
// source points at the stage's artifact object, and the stage name reaches
// the runtime through an environment variable.
func (h *FunctionHandler) desired(remoteName string) *cloudfunctionsapi.Function {
	envVars := map[string]string{}
	if stage := h.env.Conv.Stage(); stage != "" {
		envVars[constants.EnvStage] = stage
	}
	return &cloudfunctionsapi.Function{
		Name:        h.functionName(remoteName),
		Environment: "GEN_2",
		Labels:      h.env.managedLabels(),
		BuildConfig: &cloudfunctionsapi.BuildConfig{
			Runtime:    h.env.Manifest.Runtime,
			EntryPoint: entryPoint(h.env.Manifest.Name),
			Source: &cloudfunctionsapi.Source{
				StorageSource: &cloudfunctionsapi.StorageSource{
					Bucket: h.env.Config.ArtifactBucket,
					Object: h.env.artifactObject(),
				},
			},
		},
		ServiceConfig: &cloudfunctionsapi.ServiceConfig{
			AvailableMemory:      "256M",
			TimeoutSeconds:       60,
			IngressSettings:      "ALLOW_ALL",
			EnvironmentVariables: envVars,
		},
	}
}

// entryPoint converts the application name into a valid runtime identifier.
func entryPoint(appName string) string {
	return strings.ReplaceAll(appName, "-", "_")
}

// lastSegment extracts the short resource name from a fully-qualified path.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
