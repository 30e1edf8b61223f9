package packaging

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gantry.yaml"), "name: app\n")
	writeFile(t, filepath.Join(dir, "main.py"), "def app(request): ...\n")
	writeFile(t, filepath.Join(dir, "lib", "util.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(dir, "__pycache__", "main.pyc"), "bytecode")

	path, err := Archive(dir, "app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".gantry", "app.zip"), path)

	assert.ElementsMatch(t,
		[]string{"gantry.yaml", "main.py", "lib/util.py"},
		archiveNames(t, path))
}

func TestArchive_SkipsPreviousArchives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gantry.yaml"), "name: app\n")
	writeFile(t, filepath.Join(dir, "main.py"), "")

	_, err := Archive(dir, "app")
	require.NoError(t, err)

	// Repackaging must not swallow the previous archive into the new one.
	path, err := Archive(dir, "app")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gantry.yaml", "main.py"}, archiveNames(t, path))
}

func TestArchive_MissingManifest(t *testing.T) {
	_, err := Archive(t.TempDir(), "app")
	testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeLocalEnvironment)
}
