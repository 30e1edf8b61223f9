package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/resource"

	"golang.org/x/sync/errgroup"
)

// SyncReport is the outcome of one reconciliation run.
type SyncReport struct {
	DryRun bool
	// Orphans are the remote resources matching the naming convention for
	// the active stage but absent from the declared set.
	Orphans []resource.Remote
	// Deleted lists the orphans actually removed (empty under dry-run).
	Deleted []resource.Remote
}

// Reconciler discovers remote state by naming convention and deletes what
// the application no longer declares.
type Reconciler struct {
	registry *resource.Registry
	conv     naming.Convention
	log      *slog.Logger
}

// NewReconciler returns a reconciler over the given registry and convention.
func NewReconciler(registry *resource.Registry, conv naming.Convention, log *slog.Logger) *Reconciler {
	return &Reconciler{registry: registry, conv: conv, log: log}
}

// Sync lists every handler's remote resources, computes the orphan set, and
// deletes it (or only reports it under dry-run).
//
// Listing fans out concurrently: the calls are independent reads and each
// lands in its own result slot, so the diff stays deterministic. Deletion is
// sequential in teardown order. A delete failure on one orphan never aborts
// the rest; failures are collected and returned together.
func (r *Reconciler) Sync(ctx context.Context, dryRun bool) (*SyncReport, error) {
	// Teardown order, so orphaned bindings go before orphaned functions.
	handlers := r.registry.InDestroyOrder()

	results := make([][]resource.Remote, len(handlers))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handlers {
		g.Go(func() error {
			remotes, err := h.ListRemote(gctx)
			if err != nil {
				return fmt.Errorf("listing %s resources: %w", h.Kind(), err)
			}
			results[i] = remotes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &SyncReport{DryRun: dryRun}
	for i, h := range handlers {
		declared := make(map[string]bool)
		for _, d := range h.Declared() {
			declared[d.Name] = true
		}
		for _, rem := range results[i] {
			base, ok := r.conv.BaseName(rem.Name)
			if !ok {
				// Foreign resource or another stage's: never touched.
				r.log.Debug("ignoring resource outside active stage",
					"kind", rem.Kind, "name", rem.Name)
				continue
			}
			if !declared[base] {
				report.Orphans = append(report.Orphans, rem)
			}
		}
	}

	if dryRun {
		r.log.Info("dry-run: orphans reported, nothing deleted", "orphans", len(report.Orphans))
		return report, nil
	}

	var deleteErrs []error
	for _, orphan := range report.Orphans {
		h, ok := r.registry.Handler(orphan.Kind)
		if !ok {
			deleteErrs = append(deleteErrs, fmt.Errorf("no handler for kind %s", orphan.Kind))
			continue
		}
		r.log.Info("deleting orphaned resource", "kind", orphan.Kind, "name", orphan.Name)
		if err := h.Delete(ctx, orphan.Name); err != nil {
			deleteErrs = append(deleteErrs,
				fmt.Errorf("deleting %s %s: %w", orphan.Kind, orphan.Name, err))
			continue
		}
		report.Deleted = append(report.Deleted, orphan)
	}

	return report, errors.Join(deleteErrs...)
}
