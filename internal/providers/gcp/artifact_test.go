package gcp

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/resource"
	"github.com/gantryhq/gantry/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	bucketExists bool
	objects      map[string][]byte
	deleteErr    error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) EnsureBucket(context.Context) error {
	f.bucketExists = true
	return nil
}

func (f *fakeStorage) Upload(_ context.Context, object string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	f.objects[object] = data
	return nil
}

func (f *fakeStorage) ListObjects(context.Context) ([]string, error) {
	var names []string
	for name := range f.objects {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, object string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, object)
	return nil
}

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip-bytes"), 0o644))
	return path
}

func TestArtifactHandler_Declared(t *testing.T) {
	h := NewArtifactHandler(testEnv(), newFakeStorage())

	declared := h.Declared()
	require.Len(t, declared, 1)
	assert.Equal(t, "app-source", declared[0].Name)
}

func TestArtifactHandler_UploadCreatesBucketAndObject(t *testing.T) {
	env := testEnv()
	env.ArchivePath = writeArchive(t)
	fake := newFakeStorage()
	h := NewArtifactHandler(env, fake)

	declared := h.Declared()[0]
	require.NoError(t, h.Create(context.Background(), declared))

	assert.True(t, fake.bucketExists)
	assert.Equal(t, []byte("zip-bytes"), fake.objects["app-source-dev.zip"])
}

func TestArtifactHandler_UploadMissingArchive(t *testing.T) {
	env := testEnv()
	env.ArchivePath = "/nonexistent/app.zip"
	h := NewArtifactHandler(env, newFakeStorage())

	err := h.Create(context.Background(), h.Declared()[0])
	testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeLocalEnvironment)
}

func TestArtifactHandler_ListFiltersArchives(t *testing.T) {
	fake := newFakeStorage()
	fake.objects["app-source-dev.zip"] = nil
	fake.objects["app-source-prod.zip"] = nil
	fake.objects["readme.txt"] = nil
	h := NewArtifactHandler(testEnv(), fake)

	remotes, err := h.ListRemote(context.Background())
	require.NoError(t, err)

	var names []string
	for _, r := range remotes {
		assert.Equal(t, resource.KindArtifact, r.Kind)
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"app-source-dev", "app-source-prod"}, names)
}

func TestArtifactHandler_DeleteSwallowsNotFound(t *testing.T) {
	fake := newFakeStorage()
	fake.deleteErr = apiErr(http.StatusNotFound)
	h := NewArtifactHandler(testEnv(), fake)

	assert.NoError(t, h.Delete(context.Background(), "app-source-dev"))
}
