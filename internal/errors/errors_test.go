package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  MissingConfig("project"),
			want: `required config field "project" is not set`,
		},
		{
			name: "with cause",
			err:  RemoteAPI("listing functions failed", fmt.Errorf("rpc error"), true),
			want: "listing functions failed: rpc error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("deploy: %w", Conflict("function", "app-dev", nil))

	assert.True(t, stderrors.Is(err, &AppError{Code: ErrCodeConflict}))
	assert.False(t, stderrors.Is(err, &AppError{Code: ErrCodeMissingConfig}))
	assert.True(t, IsConflict(err))
}

func TestUnknownStage_NamesKnownStages(t *testing.T) {
	err := UnknownStage("qa", []string{"dev", "prod"})

	assert.Contains(t, err.Error(), `stage "qa"`)
	assert.Contains(t, err.Error(), "dev, prod")
	assert.Equal(t, ErrCodeUnknownStage, GetErrorCode(err))
}

func TestIsTransient(t *testing.T) {
	transient := RemoteAPI("rate limited", nil, true)
	permanent := RemoteAPI("permission denied", nil, false)

	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", transient)))
	assert.False(t, IsTransient(permanent))
	assert.False(t, IsTransient(fmt.Errorf("plain")))
}

func TestPartialDeploymentError(t *testing.T) {
	err := &PartialDeploymentError{
		Applied: []string{"create function app-dev", "create gateway app-dev"},
		Failed:  "create schedule app-cleanup-dev",
		Cause:   fmt.Errorf("boom"),
	}

	assert.Contains(t, err.Error(), "create function app-dev")
	assert.Contains(t, err.Error(), "failed at create schedule app-cleanup-dev")
	assert.Equal(t, ErrCodePartialDeployment, GetErrorCode(fmt.Errorf("deploy: %w", err)))
	assert.EqualError(t, stderrors.Unwrap(err), "boom")
}

func TestPartialDeploymentError_NothingApplied(t *testing.T) {
	err := &PartialDeploymentError{Failed: "create function app", Cause: fmt.Errorf("boom")}

	assert.Contains(t, err.Error(), "nothing was applied")
}
