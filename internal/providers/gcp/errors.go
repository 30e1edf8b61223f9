package gcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	apperrors "github.com/gantryhq/gantry/internal/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

func apiStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	return apiStatus(err) == http.StatusNotFound
}

func isConflict(err error) bool {
	return apiStatus(err) == http.StatusConflict
}

// isTransient reports whether a remote failure is worth retrying: rate
// limits, server errors, and network-level timeouts. Conflicts and
// authorization failures are permanent by definition.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch code := apiStatus(err); {
	case code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	case code != 0:
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// wrapRemote classifies a provider error into the application taxonomy,
// naming the operation and resource at fault.
func wrapRemote(op, kind, name string, err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return apperrors.Conflict(kind, name, err)
	}
	return apperrors.RemoteAPI(
		fmt.Sprintf("%s %s %q failed", op, kind, name), err, isTransient(err))
}
