package manifest

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/gantryhq/gantry/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gantry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
name: app
routes:
  - path: /home
    methods: [GET]
subscriptions:
  - name: on-order
    topic: orders
schedules:
  - name: cleanup
    cron: "0 3 * * *"
storage_triggers:
  - name: on-upload
    bucket: uploads
jobs:
  - name: backfill
    image: gcr.io/p/backfill:latest
    tasks: 3
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "app", m.Name)
	assert.Equal(t, "main.py", m.EntryFile)
	assert.Equal(t, "python311", m.Runtime)
	require.Len(t, m.Routes, 1)
	assert.Equal(t, "/home", m.Routes[0].Path)
	require.Len(t, m.StorageTriggers, 1)
	assert.Equal(t, "finalized", m.StorageTriggers[0].Event)
	require.Len(t, m.Jobs, 1)
	assert.Equal(t, int64(3), m.Jobs[0].Tasks)
}

func TestLoad_DefaultsJobTasks(t *testing.T) {
	path := writeManifest(t, `
name: app
jobs:
  - name: backfill
    image: gcr.io/p/backfill:latest
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Jobs[0].Tasks)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gantry.yaml"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLocalEnvironment, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "gantry.yaml")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing app name", content: "routes:\n  - path: /x\n"},
		{name: "route without leading slash", content: "name: app\nroutes:\n  - path: x\n"},
		{name: "subscription without topic", content: "name: app\nsubscriptions:\n  - name: s\n"},
		{name: "job without image", content: "name: app\njobs:\n  - name: j\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestJobByName(t *testing.T) {
	m := &Manifest{Jobs: []Job{{Name: "backfill", Image: "img"}}}

	j, ok := m.JobByName("backfill")
	assert.True(t, ok)
	assert.Equal(t, "img", j.Image)

	_, ok = m.JobByName("missing")
	assert.False(t, ok)
}
