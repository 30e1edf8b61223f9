package cmd

import (
	"context"
	"testing"

	"github.com/gantryhq/gantry/internal/lifecycle"
	"github.com/gantryhq/gantry/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	report *lifecycle.SyncReport
	err    error
	dryRun bool
}

func (f *fakeReconciler) Sync(_ context.Context, dryRun bool) (*lifecycle.SyncReport, error) {
	f.dryRun = dryRun
	return f.report, f.err
}

func TestSyncService_NoOrphans(t *testing.T) {
	buf := captureOutput(t)
	fake := &fakeReconciler{report: &lifecycle.SyncReport{}}

	require.NoError(t, syncService(context.Background(), fake, false, "dev"))
	assert.Contains(t, buf.String(), "No orphaned resources")
}

func TestSyncService_DryRunReportsWithoutDeleting(t *testing.T) {
	buf := captureOutput(t)
	orphan := resource.Remote{Kind: resource.KindFunction, Name: "app-old-dev"}
	fake := &fakeReconciler{report: &lifecycle.SyncReport{DryRun: true, Orphans: []resource.Remote{orphan}}}

	require.NoError(t, syncService(context.Background(), fake, true, "dev"))
	assert.True(t, fake.dryRun)
	assert.Contains(t, buf.String(), "would delete function app-old-dev")
}

func TestSyncService_ReportsDeletions(t *testing.T) {
	buf := captureOutput(t)
	orphan := resource.Remote{Kind: resource.KindSchedule, Name: "app-nightly-dev"}
	fake := &fakeReconciler{report: &lifecycle.SyncReport{
		Orphans: []resource.Remote{orphan},
		Deleted: []resource.Remote{orphan},
	}}

	require.NoError(t, syncService(context.Background(), fake, false, "dev"))
	assert.Contains(t, buf.String(), "deleted schedule app-nightly-dev")
}
