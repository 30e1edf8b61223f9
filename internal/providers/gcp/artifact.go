package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/gantryhq/gantry/internal/errors"
	"github.com/gantryhq/gantry/internal/resource"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// archiveSuffix distinguishes source archives from anything else a user may
// have dropped into the artifact bucket.
const archiveSuffix = ".zip"

// storageAPI is the slice of Cloud Storage the artifact handler needs.
type storageAPI interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, object string, src io.Reader) error
	ListObjects(ctx context.Context) ([]string, error)
	DeleteObject(ctx context.Context, object string) error
}

// storageBucket adapts a bucket handle to storageAPI.
type storageBucket struct {
	bucket  *storage.BucketHandle
	project string
}

func (s *storageBucket) EnsureBucket(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	return s.bucket.Create(ctx, s.project, nil)
}

func (s *storageBucket) Upload(ctx context.Context, object string, src io.Reader) error {
	w := s.bucket.Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *storageBucket) ListObjects(ctx context.Context) ([]string, error) {
	var names []string
	it := s.bucket.Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}

func (s *storageBucket) DeleteObject(ctx context.Context, object string) error {
	return s.bucket.Object(object).Delete(ctx)
}

// ArtifactHandler manages the packaged source archive in the artifact
// bucket. It deploys first so the function handler can reference the object,
// and on teardown its objects go last, and only when explicitly purged.
type ArtifactHandler struct {
	env Env
	api storageAPI
}

func NewArtifactHandler(env Env, api storageAPI) *ArtifactHandler {
	return &ArtifactHandler{env: env, api: api}
}

func (h *ArtifactHandler) Kind() resource.Kind { return resource.KindArtifact }

func (h *ArtifactHandler) Declared() []resource.Declared {
	return []resource.Declared{{
		Kind: resource.KindArtifact,
		Name: h.env.artifactBase(),
		Spec: h.env.ArchivePath,
	}}
}

func (h *ArtifactHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var objects []string
	err := withRetry(ctx, h.env.Log, "list artifacts", func() error {
		var listErr error
		objects, listErr = h.api.ListObjects(ctx)
		if listErr != nil {
			return apperrors.RemoteAPI("listing artifact bucket failed", listErr, isTransient(listErr))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var remotes []resource.Remote
	for _, object := range objects {
		name, ok := strings.CutSuffix(object, archiveSuffix)
		if !ok {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindArtifact,
			Name: name,
			ID:   object,
		})
	}
	return remotes, nil
}

func (h *ArtifactHandler) Create(ctx context.Context, d resource.Declared) error {
	return h.upload(ctx, d)
}

// Update re-uploads over the existing object; storage writes replace
// atomically, so create and update are the same operation here.
func (h *ArtifactHandler) Update(ctx context.Context, d resource.Declared) error {
	return h.upload(ctx, d)
}

func (h *ArtifactHandler) upload(ctx context.Context, d resource.Declared) error {
	path, ok := d.Spec.(string)
	if !ok || path == "" {
		return fmt.Errorf("artifact %s has no archive path", d.Name)
	}
	object := h.env.Conv.RemoteName(d.Name) + archiveSuffix

	return withRetry(ctx, h.env.Log, "upload artifact", func() error {
		if err := h.api.EnsureBucket(ctx); err != nil {
			return wrapRemote("ensure bucket for", "artifact", object, err)
		}
		src, err := os.Open(path)
		if err != nil {
			return apperrors.LocalEnvironment(
				fmt.Sprintf("cannot open source archive %s", path), err)
		}
		defer src.Close()

		if err := h.api.Upload(ctx, object, src); err != nil {
			return wrapRemote("upload", "artifact", object, err)
		}
		h.env.Log.Debug("uploaded source archive",
			"bucket", h.env.Config.ArtifactBucket, "object", object)
		return nil
	})
}

func (h *ArtifactHandler) Delete(ctx context.Context, remoteName string) error {
	object := remoteName + archiveSuffix
	return withRetry(ctx, h.env.Log, "delete artifact", func() error {
		err := h.api.DeleteObject(ctx, object)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "artifact", object, err)
	})
}
