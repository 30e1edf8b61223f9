package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gantryhq/gantry/internal/naming"
	"github.com/gantryhq/gantry/internal/resource"
)

// DestroyReport lists what a destroy run removed.
type DestroyReport struct {
	Deleted []resource.Remote
}

// Destroyer tears down all declared resources for a stage in reverse
// dependency order.
type Destroyer struct {
	registry *resource.Registry
	conv     naming.Convention
	log      *slog.Logger
}

// NewDestroyer returns a destroyer over the given registry and convention.
func NewDestroyer(registry *resource.Registry, conv naming.Convention, log *slog.Logger) *Destroyer {
	return &Destroyer{registry: registry, conv: conv, log: log}
}

// Destroy deletes every declared resource, bindings before the function and
// the function before stored artifacts. Resources already removed
// out-of-band are treated as deleted (handlers swallow not-found). When
// purgeArtifacts is set, every stored artifact for the stage is removed
// last, after resource teardown has succeeded.
func (d *Destroyer) Destroy(ctx context.Context, purgeArtifacts bool) (*DestroyReport, error) {
	report := &DestroyReport{}

	for _, h := range d.registry.InDestroyOrder() {
		if h.Kind() == resource.KindArtifact {
			// Artifacts survive a plain destroy so a re-deploy can reuse
			// them; --all purges them below.
			continue
		}
		for _, dec := range h.Declared() {
			remoteName := d.conv.RemoteName(dec.Name)
			d.log.Info("destroying", "kind", dec.Kind, "name", remoteName)
			if err := h.Delete(ctx, remoteName); err != nil {
				return report, fmt.Errorf("destroying %s %s: %w", dec.Kind, remoteName, err)
			}
			report.Deleted = append(report.Deleted, resource.Remote{Kind: dec.Kind, Name: remoteName})
		}
	}

	if !purgeArtifacts {
		return report, nil
	}

	artifacts, ok := d.registry.Handler(resource.KindArtifact)
	if !ok {
		return report, nil
	}
	// Archives are versioned, so purge everything matching the convention
	// rather than only the currently declared object.
	remotes, err := artifacts.ListRemote(ctx)
	if err != nil {
		return report, fmt.Errorf("listing artifacts: %w", err)
	}
	for _, rem := range remotes {
		if _, owned := d.conv.BaseName(rem.Name); !owned {
			continue
		}
		d.log.Info("purging artifact", "name", rem.Name)
		if err := artifacts.Delete(ctx, rem.Name); err != nil {
			return report, fmt.Errorf("purging artifact %s: %w", rem.Name, err)
		}
		report.Deleted = append(report.Deleted, rem)
	}

	return report, nil
}
