package gcp

import (
	"context"
	"fmt"
	"time"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/resource"

	runapi "google.golang.org/api/run/v2"
)

// runJobsAPI is the slice of Cloud Run the job handler needs. Mutations
// block until the underlying operation finishes.
type runJobsAPI interface {
	Create(ctx context.Context, parent, jobID string, job *runapi.GoogleCloudRunV2Job) error
	Patch(ctx context.Context, name string, job *runapi.GoogleCloudRunV2Job) error
	List(ctx context.Context, parent string) ([]*runapi.GoogleCloudRunV2Job, error)
	Delete(ctx context.Context, name string) error
	Run(ctx context.Context, name string) error
}

type runJobsService struct {
	svc *runapi.Service
}

func (s *runJobsService) Create(ctx context.Context, parent, jobID string, job *runapi.GoogleCloudRunV2Job) error {
	op, err := s.svc.Projects.Locations.Jobs.Create(parent, job).
		JobId(jobID).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *runJobsService) Patch(ctx context.Context, name string, job *runapi.GoogleCloudRunV2Job) error {
	op, err := s.svc.Projects.Locations.Jobs.Patch(name, job).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *runJobsService) List(ctx context.Context, parent string) ([]*runapi.GoogleCloudRunV2Job, error) {
	var out []*runapi.GoogleCloudRunV2Job
	call := s.svc.Projects.Locations.Jobs.List(parent)
	err := call.Pages(ctx, func(resp *runapi.GoogleCloudRunV2ListJobsResponse) error {
		out = append(out, resp.Jobs...)
		return nil
	})
	return out, err
}

func (s *runJobsService) Delete(ctx context.Context, name string) error {
	op, err := s.svc.Projects.Locations.Jobs.Delete(name).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

// Run starts an execution without waiting for it to finish; executions can
// run for hours and are observed through the console or gcloud.
func (s *runJobsService) Run(ctx context.Context, name string) error {
	_, err := s.svc.Projects.Locations.Jobs.Run(name, &runapi.GoogleCloudRunV2RunJobRequest{}).
		Context(ctx).Do()
	return err
}

func (s *runJobsService) await(ctx context.Context, opName string) error {
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

// JobHandler manages Cloud Run jobs for the application's container
// workloads.
type JobHandler struct {
	env Env
	api runJobsAPI
}

func NewJobHandler(env Env, api runJobsAPI) *JobHandler {
	return &JobHandler{env: env, api: api}
}

func (h *JobHandler) Kind() resource.Kind { return resource.KindJob }

func (h *JobHandler) Declared() []resource.Declared {
	var out []resource.Declared
	for _, job := range h.env.Manifest.Jobs {
		out = append(out, resource.Declared{
			Kind: resource.KindJob,
			Name: job.Name,
			Spec: job,
		})
	}
	return out
}

func (h *JobHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var jobs []*runapi.GoogleCloudRunV2Job
	err := withRetry(ctx, h.env.Log, "list jobs", func() error {
		var listErr error
		jobs, listErr = h.api.List(ctx, h.env.locationParent())
		return wrapRemote("list", "job", h.env.locationParent(), listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, job := range jobs {
		if job.Labels[managedByLabel] != constants.ProjectName {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindJob,
			Name: lastSegment(job.Name),
			ID:   job.Name,
		})
	}
	return remotes, nil
}

func (h *JobHandler) Create(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Job)
	if !ok {
		return fmt.Errorf("job %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	job := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "create job", func() error {
		return wrapRemote("create", "job", remoteName,
			h.api.Create(ctx, h.env.locationParent(), remoteName, job))
	})
}

func (h *JobHandler) Update(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Job)
	if !ok {
		return fmt.Errorf("job %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	job := h.desired(remoteName, spec)
	return withRetry(ctx, h.env.Log, "update job", func() error {
		return wrapRemote("update", "job", remoteName, h.api.Patch(ctx, job.Name, job))
	})
}

func (h *JobHandler) Delete(ctx context.Context, remoteName string) error {
	name := h.runJobName(remoteName)
	return withRetry(ctx, h.env.Log, "delete job", func() error {
		err := h.api.Delete(ctx, name)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "job", remoteName, err)
	})
}

// Execute starts a remote execution of the named job for the active stage.
func (h *JobHandler) Execute(ctx context.Context, base string) error {
	remoteName := h.env.Conv.RemoteName(base)
	return withRetry(ctx, h.env.Log, "run job", func() error {
		return wrapRemote("run", "job", remoteName,
			h.api.Run(ctx, h.runJobName(remoteName)))
	})
}

func (h *JobHandler) desired(remoteName string, spec manifest.Job) *runapi.GoogleCloudRunV2Job {
	return &runapi.GoogleCloudRunV2Job{
		Name:   h.runJobName(remoteName),
		Labels: h.env.managedLabels(),
		Template: &runapi.GoogleCloudRunV2ExecutionTemplate{
			TaskCount: spec.Tasks,
			Template: &runapi.GoogleCloudRunV2TaskTemplate{
				Containers: []*runapi.GoogleCloudRunV2Container{{
					Image:   spec.Image,
					Command: spec.Command,
					Args:    spec.Args,
				}},
			},
		},
	}
}

func (h *JobHandler) runJobName(remoteName string) string {
	return h.env.locationParent() + "/jobs/" + remoteName
}
