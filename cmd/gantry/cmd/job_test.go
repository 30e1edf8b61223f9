package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/gantryhq/gantry/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	name string
	args []string
	env  []string
	out  []byte
	err  error
}

func (f *fakeLauncher) Run(_ context.Context, name string, args []string, env []string) ([]byte, error) {
	f.name = name
	f.args = args
	f.env = env
	return f.out, f.err
}

func TestJobRunLocal_ThreadsTaskIndex(t *testing.T) {
	buf := captureOutput(t)
	launcher := &fakeLauncher{out: []byte("migrated 3 tables")}
	job := manifest.Job{
		Name:    "migrate",
		Image:   "gcr.io/acme/migrate",
		Command: []string{"python", "migrate.py"},
		Args:    []string{"--verbose"},
	}

	require.NoError(t, jobRunLocal(context.Background(), launcher, job, "2"))
	assert.Equal(t, "python", launcher.name)
	assert.Equal(t, []string{"migrate.py", "--verbose"}, launcher.args)
	assert.Contains(t, launcher.env, "CLOUD_RUN_TASK_INDEX=2")
	assert.Contains(t, buf.String(), "migrated 3 tables")
	assert.Contains(t, buf.String(), "Job migrate completed")
}

func TestJobRunLocal_NoCommand(t *testing.T) {
	captureOutput(t)
	job := manifest.Job{Name: "migrate", Image: "gcr.io/acme/migrate"}

	err := jobRunLocal(context.Background(), &fakeLauncher{}, job, "0")
	assert.Error(t, err)
}

func TestJobRunLocal_CommandFailure(t *testing.T) {
	buf := captureOutput(t)
	launcher := &fakeLauncher{out: []byte("stack trace"), err: errors.New("exit status 1")}
	job := manifest.Job{Name: "migrate", Image: "gcr.io/acme/migrate", Command: []string{"python"}}

	err := jobRunLocal(context.Background(), launcher, job, "0")
	require.Error(t, err)
	// Output still surfaces so the user sees why the job died.
	assert.Contains(t, buf.String(), "stack trace")
}
