package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/gantryhq/gantry/internal/lifecycle"
	"github.com/gantryhq/gantry/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDestroyer struct {
	report *lifecycle.DestroyReport
	err    error
	purge  bool
}

func (f *fakeDestroyer) Destroy(_ context.Context, purgeArtifacts bool) (*lifecycle.DestroyReport, error) {
	f.purge = purgeArtifacts
	return f.report, f.err
}

func TestDestroyService_ReportsDeletions(t *testing.T) {
	buf := captureOutput(t)
	fake := &fakeDestroyer{report: &lifecycle.DestroyReport{Deleted: []resource.Remote{
		{Kind: resource.KindGateway, Name: "app-dev"},
		{Kind: resource.KindFunction, Name: "app-dev"},
	}}}

	require.NoError(t, destroyService(context.Background(), fake, true, "dev"))
	assert.True(t, fake.purge)
	assert.Contains(t, buf.String(), "deleted gateway app-dev")
	assert.Contains(t, buf.String(), "Destroyed 2 resource(s)")
}

func TestDestroyService_PartialFailureStillListsDeleted(t *testing.T) {
	buf := captureOutput(t)
	fake := &fakeDestroyer{
		report: &lifecycle.DestroyReport{Deleted: []resource.Remote{
			{Kind: resource.KindGateway, Name: "app-dev"},
		}},
		err: errors.New("destroying function app-dev: permission denied"),
	}

	err := destroyService(context.Background(), fake, false, "dev")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "deleted gateway app-dev")
}

func TestDestroyService_NothingToDo(t *testing.T) {
	buf := captureOutput(t)
	fake := &fakeDestroyer{report: &lifecycle.DestroyReport{}}

	require.NoError(t, destroyService(context.Background(), fake, false, "dev"))
	assert.Contains(t, buf.String(), "Nothing to destroy")
}
