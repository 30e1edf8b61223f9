// Package lifecycle implements the deployment orchestrator, the sync
// reconciler, and the destroyer. All three share the handler registry and
// the naming convention; none of them keeps state between invocations.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/resource"
)

// DeployOptions controls one deploy run.
type DeployOptions struct {
	// Force overwrites conflicting pre-existing resources instead of
	// aborting the plan.
	Force bool
	// DryRun stops after validation; no mutating call is made.
	DryRun bool
	// Skip prunes the named kinds from the plan.
	Skip []resource.Kind
	// Only restricts the plan to the named kinds. Empty means all.
	Only []resource.Kind
}

// DeployResult reports what a deploy run planned and applied.
type DeployResult struct {
	Plan    []Step
	Applied []Step
}

// Deployer sequences handler operations in dependency order.
type Deployer struct {
	registry *resource.Registry
	conv     naming.Convention
	log      *slog.Logger
}

// NewDeployer returns a deployer over the given registry and convention.
func NewDeployer(registry *resource.Registry, conv naming.Convention, log *slog.Logger) *Deployer {
	return &Deployer{registry: registry, conv: conv, log: log}
}

// Deploy runs INIT -> VALIDATE -> APPLY.
//
// VALIDATE checks every planned create against the remote state; without
// force, any pre-existing resource aborts the whole plan before a single
// mutation. APPLY executes entries strictly in dependency order and halts on
// the first failure: already-applied entries are not rolled back, and the
// returned PartialDeploymentError enumerates them so a re-run is safe.
func (d *Deployer) Deploy(ctx context.Context, opts DeployOptions) (*DeployResult, error) {
	plan, err := d.buildPlan(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &DeployResult{Plan: plan}
	if opts.DryRun {
		d.log.Info("dry-run: plan validated, nothing applied", "steps", len(plan))
		return result, nil
	}

	for _, step := range plan {
		h, ok := d.registry.Handler(step.Declared.Kind)
		if !ok {
			return result, fmt.Errorf("no handler registered for kind %s", step.Declared.Kind)
		}

		d.log.Info("applying", "step", step.Description())
		var applyErr error
		switch step.Op {
		case OpCreate:
			applyErr = h.Create(ctx, step.Declared)
		case OpUpdate:
			applyErr = h.Update(ctx, step.Declared)
		default:
			applyErr = fmt.Errorf("unexpected operation %s in deploy plan", step.Op)
		}
		if applyErr != nil {
			return result, &apperrors.PartialDeploymentError{
				Applied: descriptions(result.Applied),
				Failed:  step.Description(),
				Cause:   applyErr,
			}
		}
		result.Applied = append(result.Applied, step)
	}

	return result, nil
}

// buildPlan covers INIT and VALIDATE: compute the declared set, prune by
// scope flags, and decide create vs update per entry from the remote state.
func (d *Deployer) buildPlan(ctx context.Context, opts DeployOptions) ([]Step, error) {
	included := includeSet(opts)

	var plan []Step
	for _, h := range d.registry.InDeployOrder() {
		if !included(h.Kind()) {
			d.log.Debug("kind pruned from plan", "kind", h.Kind())
			continue
		}

		declared := h.Declared()
		if len(declared) == 0 {
			continue
		}

		existing, err := d.listRemoteNames(ctx, h)
		if err != nil {
			return nil, err
		}

		for _, dec := range declared {
			if err := d.conv.ValidateBase(dec.Name); err != nil {
				return nil, fmt.Errorf("invalid %s declaration: %w", dec.Kind, err)
			}
			remoteName := d.conv.RemoteName(dec.Name)
			step := Step{Op: OpCreate, Declared: dec, RemoteName: remoteName}
			if existing[remoteName] {
				if !opts.Force {
					return nil, apperrors.Conflict(dec.Kind.String(), remoteName, nil)
				}
				step.Op = OpUpdate
			}
			plan = append(plan, step)
		}
	}
	return plan, nil
}

func (d *Deployer) listRemoteNames(ctx context.Context, h resource.Handler) (map[string]bool, error) {
	remotes, err := h.ListRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s resources: %w", h.Kind(), err)
	}
	names := make(map[string]bool, len(remotes))
	for _, r := range remotes {
		names[r.Name] = true
	}
	return names, nil
}

func includeSet(opts DeployOptions) func(resource.Kind) bool {
	skip := make(map[resource.Kind]bool, len(opts.Skip))
	for _, k := range opts.Skip {
		skip[k] = true
	}
	only := make(map[resource.Kind]bool, len(opts.Only))
	for _, k := range opts.Only {
		only[k] = true
	}
	return func(k resource.Kind) bool {
		if skip[k] {
			return false
		}
		if len(only) > 0 {
			return only[k]
		}
		return true
	}
}
