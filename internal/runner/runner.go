// Package runner abstracts launching external processes. The core depends
// only on the Launcher contract (args in, captured output and exit status
// out), never on a concrete process-spawning mechanism.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	apperrors "github.com/gantryhq/gantry/internal/errors"
)

// Launcher runs an external command and returns its combined output.
type Launcher interface {
	Run(ctx context.Context, name string, args []string, env []string) ([]byte, error)
}

// ExecLauncher runs commands via os/exec, inheriting the parent environment
// plus any extra variables.
type ExecLauncher struct{}

// NewExecLauncher returns a Launcher backed by os/exec.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Run executes the command and returns its combined stdout and stderr. A
// missing binary is reported as a LocalEnvironment error naming the command.
func (l *ExecLauncher) Run(ctx context.Context, name string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return buf.Bytes(), apperrors.LocalEnvironment(
				fmt.Sprintf("command %q is not installed", name), err)
		}
		return buf.Bytes(), fmt.Errorf("%s exited with error: %w", name, err)
	}
	return buf.Bytes(), nil
}
