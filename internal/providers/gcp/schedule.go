package gcp

import (
	"context"
	"fmt"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/resource"

	cloudschedulerapi "google.golang.org/api/cloudscheduler/v1"
)

// scheduler jobs have no labels upstream, so ownership is recorded in the
// description instead.
const scheduleMarker = "managed by " + constants.ProjectName

// schedulerAPI is the slice of Cloud Scheduler the schedule handler needs.
type schedulerAPI interface {
	Create(ctx context.Context, parent string, job *cloudschedulerapi.Job) error
	Patch(ctx context.Context, name string, job *cloudschedulerapi.Job) error
	List(ctx context.Context, parent string) ([]*cloudschedulerapi.Job, error)
	Delete(ctx context.Context, name string) error
}

type schedulerService struct {
	svc *cloudschedulerapi.Service
}

func (s *schedulerService) Create(ctx context.Context, parent string, job *cloudschedulerapi.Job) error {
	_, err := s.svc.Projects.Locations.Jobs.Create(parent, job).Context(ctx).Do()
	return err
}

func (s *schedulerService) Patch(ctx context.Context, name string, job *cloudschedulerapi.Job) error {
	_, err := s.svc.Projects.Locations.Jobs.Patch(name, job).Context(ctx).Do()
	return err
}

func (s *schedulerService) List(ctx context.Context, parent string) ([]*cloudschedulerapi.Job, error) {
	var out []*cloudschedulerapi.Job
	call := s.svc.Projects.Locations.Jobs.List(parent)
	err := call.Pages(ctx, func(resp *cloudschedulerapi.ListJobsResponse) error {
		out = append(out, resp.Jobs...)
		return nil
	})
	return out, err
}

func (s *schedulerService) Delete(ctx context.Context, name string) error {
	_, err := s.svc.Projects.Locations.Jobs.Delete(name).Context(ctx).Do()
	return err
}

// ScheduleHandler manages cron schedules that invoke the function over
// HTTPS. The schedule's identity travels in request headers so the runtime
// can dispatch to the right handler.
type ScheduleHandler struct {
	env Env
	api schedulerAPI
}

func NewScheduleHandler(env Env, api schedulerAPI) *ScheduleHandler {
	return &ScheduleHandler{env: env, api: api}
}

func (h *ScheduleHandler) Kind() resource.Kind { return resource.KindSchedule }

func (h *ScheduleHandler) Declared() []resource.Declared {
	var out []resource.Declared
	for _, sched := range h.env.Manifest.Schedules {
		out = append(out, resource.Declared{
			Kind: resource.KindSchedule,
			Name: sched.Name,
			Spec: sched,
		})
	}
	return out
}

func (h *ScheduleHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var jobs []*cloudschedulerapi.Job
	err := withRetry(ctx, h.env.Log, "list schedules", func() error {
		var listErr error
		jobs, listErr = h.api.List(ctx, h.env.locationParent())
		return wrapRemote("list", "schedule", h.env.locationParent(), listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, job := range jobs {
		if job.Description != scheduleMarker {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindSchedule,
			Name: lastSegment(job.Name),
			ID:   job.Name,
		})
	}
	return remotes, nil
}

func (h *ScheduleHandler) Create(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Schedule)
	if !ok {
		return fmt.Errorf("schedule %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	job := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "create schedule", func() error {
		return wrapRemote("create", "schedule", remoteName,
			h.api.Create(ctx, h.env.locationParent(), job))
	})
}

func (h *ScheduleHandler) Update(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Schedule)
	if !ok {
		return fmt.Errorf("schedule %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	job := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "update schedule", func() error {
		return wrapRemote("update", "schedule", remoteName,
			h.api.Patch(ctx, job.Name, job))
	})
}

func (h *ScheduleHandler) Delete(ctx context.Context, remoteName string) error {
	name := h.jobName(remoteName)
	return withRetry(ctx, h.env.Log, "delete schedule", func() error {
		err := h.api.Delete(ctx, name)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "schedule", remoteName, err)
	})
}

func (h *ScheduleHandler) desired(remoteName string, spec manifest.Schedule) *cloudschedulerapi.Job {
	timezone := spec.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	return &cloudschedulerapi.Job{
		Name:        h.jobName(remoteName),
		Description: scheduleMarker,
		Schedule:    spec.Cron,
		TimeZone:    timezone,
		HttpTarget: &cloudschedulerapi.HttpTarget{
			Uri:        h.env.FunctionURL(h.env.Conv.RemoteName(h.env.FunctionBase())),
			HttpMethod: "GET",
			Headers: map[string]string{
				"X-Gantry-Type": "schedule",
				"X-Gantry-Name": spec.Name,
			},
		},
	}
}

func (h *ScheduleHandler) jobName(remoteName string) string {
	return h.env.locationParent() + "/jobs/" + remoteName
}
