package gcp

import (
	"context"
	"net/http"
	"testing"

	apperrors "github.com/gantryhq/gantry/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cloudfunctionsapi "google.golang.org/api/cloudfunctions/v2"
)

type fakeFunctions struct {
	functions []*cloudfunctionsapi.Function
	created   []*cloudfunctionsapi.Function
	patched   []*cloudfunctionsapi.Function
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeFunctions) List(context.Context, string) ([]*cloudfunctionsapi.Function, error) {
	return f.functions, nil
}

func (f *fakeFunctions) Create(_ context.Context, _, _ string, fn *cloudfunctionsapi.Function) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, fn)
	return nil
}

func (f *fakeFunctions) Patch(_ context.Context, _ string, fn *cloudfunctionsapi.Function) error {
	f.patched = append(f.patched, fn)
	return nil
}

func (f *fakeFunctions) Delete(_ context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func TestFunctionHandler_CreateBuildsStagedFunction(t *testing.T) {
	fake := &fakeFunctions{}
	h := NewFunctionHandler(testEnv(), fake)

	require.NoError(t, h.Create(context.Background(), h.Declared()[0]))
	require.Len(t, fake.created, 1)

	fn := fake.created[0]
	assert.Equal(t, "projects/acme-project/locations/us-central1/functions/app-dev", fn.Name)
	assert.Equal(t, "GEN_2", fn.Environment)
	assert.Equal(t, "python311", fn.BuildConfig.Runtime)
	assert.Equal(t, "app", fn.BuildConfig.EntryPoint)
	assert.Equal(t, "gantry-acme-project-artifacts", fn.BuildConfig.Source.StorageSource.Bucket)
	assert.Equal(t, "app-source-dev.zip", fn.BuildConfig.Source.StorageSource.Object)
	assert.Equal(t, "dev", fn.ServiceConfig.EnvironmentVariables["GANTRY_STAGE"])
	assert.Equal(t, "gantry", fn.Labels["managed-by"])
}

func TestFunctionHandler_CreateConflict(t *testing.T) {
	fake := &fakeFunctions{createErr: apiErr(http.StatusConflict)}
	h := NewFunctionHandler(testEnv(), fake)

	err := h.Create(context.Background(), h.Declared()[0])
	assert.True(t, apperrors.IsConflict(err))
}

func TestFunctionHandler_ListFiltersForeignFunctions(t *testing.T) {
	fake := &fakeFunctions{functions: []*cloudfunctionsapi.Function{
		{
			Name:   "projects/acme-project/locations/us-central1/functions/app-dev",
			Labels: map[string]string{"managed-by": "gantry", "stage": "dev"},
		},
		{
			Name: "projects/acme-project/locations/us-central1/functions/terraform-managed",
		},
	}}
	h := NewFunctionHandler(testEnv(), fake)

	remotes, err := h.ListRemote(context.Background())
	require.NoError(t, err)
	require.Len(t, remotes, 1)
	assert.Equal(t, "app-dev", remotes[0].Name)
	assert.Equal(t, "projects/acme-project/locations/us-central1/functions/app-dev", remotes[0].ID)
}

func TestFunctionHandler_DeleteSwallowsNotFound(t *testing.T) {
	fake := &fakeFunctions{deleteErr: apiErr(http.StatusNotFound)}
	h := NewFunctionHandler(testEnv(), fake)

	assert.NoError(t, h.Delete(context.Background(), "app-dev"))
}

func TestEntryPoint(t *testing.T) {
	assert.Equal(t, "my_app", entryPoint("my-app"))
}
