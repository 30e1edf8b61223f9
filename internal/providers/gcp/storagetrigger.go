package gcp

import (
	"context"
	"fmt"
	"time"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/resource"

	eventarcapi "google.golang.org/api/eventarc/v1"
)

// storageEventType expands the short event names the manifest uses into the
// CloudEvents types Eventarc filters on.
func storageEventType(event string) string {
	return "google.cloud.storage.object.v1." + event
}

// eventarcAPI is the slice of Eventarc the storage trigger handler needs.
// Mutations block until the underlying operation finishes.
type eventarcAPI interface {
	Create(ctx context.Context, parent, triggerID string, trigger *eventarcapi.Trigger) error
	Patch(ctx context.Context, name string, trigger *eventarcapi.Trigger) error
	List(ctx context.Context, parent string) ([]*eventarcapi.Trigger, error)
	Delete(ctx context.Context, name string) error
}

type eventarcService struct {
	svc *eventarcapi.Service
}

func (s *eventarcService) Create(ctx context.Context, parent, triggerID string, trigger *eventarcapi.Trigger) error {
	op, err := s.svc.Projects.Locations.Triggers.Create(parent, trigger).
		TriggerId(triggerID).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *eventarcService) Patch(ctx context.Context, name string, trigger *eventarcapi.Trigger) error {
	op, err := s.svc.Projects.Locations.Triggers.Patch(name, trigger).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *eventarcService) List(ctx context.Context, parent string) ([]*eventarcapi.Trigger, error) {
	var out []*eventarcapi.Trigger
	call := s.svc.Projects.Locations.Triggers.List(parent)
	err := call.Pages(ctx, func(resp *eventarcapi.ListTriggersResponse) error {
		out = append(out, resp.Triggers...)
		return nil
	})
	return out, err
}

func (s *eventarcService) Delete(ctx context.Context, name string) error {
	op, err := s.svc.Projects.Locations.Triggers.Delete(name).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *eventarcService) await(ctx context.Context, opName string) error {
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

// StorageTriggerHandler manages Eventarc triggers that invoke the function
// on storage bucket events.
type StorageTriggerHandler struct {
	env Env
	api eventarcAPI
}

func NewStorageTriggerHandler(env Env, api eventarcAPI) *StorageTriggerHandler {
	return &StorageTriggerHandler{env: env, api: api}
}

func (h *StorageTriggerHandler) Kind() resource.Kind { return resource.KindStorageTrigger }

func (h *StorageTriggerHandler) Declared() []resource.Declared {
	var out []resource.Declared
	for _, trigger := range h.env.Manifest.StorageTriggers {
		out = append(out, resource.Declared{
			Kind: resource.KindStorageTrigger,
			Name: trigger.Name,
			Spec: trigger,
		})
	}
	return out
}

func (h *StorageTriggerHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var triggers []*eventarcapi.Trigger
	err := withRetry(ctx, h.env.Log, "list storage triggers", func() error {
		var listErr error
		triggers, listErr = h.api.List(ctx, h.env.locationParent())
		return wrapRemote("list", "storage-trigger", h.env.locationParent(), listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, trigger := range triggers {
		if trigger.Labels[managedByLabel] != constants.ProjectName {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindStorageTrigger,
			Name: lastSegment(trigger.Name),
			ID:   trigger.Name,
		})
	}
	return remotes, nil
}

func (h *StorageTriggerHandler) Create(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.StorageTrigger)
	if !ok {
		return fmt.Errorf("storage trigger %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	trigger := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "create storage trigger", func() error {
		return wrapRemote("create", "storage-trigger", remoteName,
			h.api.Create(ctx, h.env.locationParent(), remoteName, trigger))
	})
}

func (h *StorageTriggerHandler) Update(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.StorageTrigger)
	if !ok {
		return fmt.Errorf("storage trigger %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	trigger := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "update storage trigger", func() error {
		return wrapRemote("update", "storage-trigger", remoteName,
			h.api.Patch(ctx, trigger.Name, trigger))
	})
}

func (h *StorageTriggerHandler) Delete(ctx context.Context, remoteName string) error {
	name := h.triggerName(remoteName)
	return withRetry(ctx, h.env.Log, "delete storage trigger", func() error {
		err := h.api.Delete(ctx, name)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "storage-trigger", remoteName, err)
	})
}

func (h *StorageTriggerHandler) desired(remoteName string, spec manifest.StorageTrigger) *eventarcapi.Trigger {
	return &eventarcapi.Trigger{
		Name:   h.triggerName(remoteName),
		Labels: h.env.managedLabels(),
		EventFilters: []*eventarcapi.EventFilter{
			{Attribute: "type", Value: storageEventType(spec.Event)},
			{Attribute: "bucket", Value: spec.Bucket},
		},
		Destination: &eventarcapi.Destination{
			CloudFunction: h.env.locationParent() + "/functions/" +
				h.env.Conv.RemoteName(h.env.FunctionBase()),
		},
	}
}

func (h *StorageTriggerHandler) triggerName(remoteName string) string {
	return h.env.locationParent() + "/triggers/" + remoteName
}
