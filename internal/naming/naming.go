// Package naming implements the resource naming convention.
//
// The convention is the only durable record of which remote resources an
// application owns: there is no deployment manifest on disk, so deploy,
// sync, and destroy all derive remote identifiers from (base name, stage)
// and recognize owned resources by inverting that mapping.
package naming

import (
	"fmt"
	"strings"
)

// Separator joins a base name and a stage in a remote resource name.
const Separator = "-"

// Convention maps declared base names to remote resource names for one
// stage, and back. The zero value is the unstaged convention with no known
// stages.
type Convention struct {
	stage       string
	knownStages []string
}

// New returns the convention for the given stage. knownStages must list
// every stage defined in config, including the active one; it is what keeps
// an unstaged run from claiming another stage's resources.
func New(stage string, knownStages []string) Convention {
	return Convention{stage: stage, knownStages: knownStages}
}

// Stage returns the active stage, or "" for an unstaged run.
func (c Convention) Stage() string {
	return c.stage
}

// RemoteName returns the remote resource name for a declared base name.
func (c Convention) RemoteName(base string) string {
	if c.stage == "" {
		return base
	}
	return base + Separator + c.stage
}

// BaseName inverts RemoteName. It returns the declared base name and true
// when the remote name belongs to the active stage, and false otherwise.
//
// Stage isolation is absolute in both directions: a staged convention only
// claims names carrying its own suffix, and an unstaged convention refuses
// names carrying any known stage's suffix.
func (c Convention) BaseName(remote string) (string, bool) {
	if c.stage != "" {
		base, ok := strings.CutSuffix(remote, Separator+c.stage)
		if !ok || base == "" {
			return "", false
		}
		return base, true
	}
	for _, stage := range c.knownStages {
		if base, ok := strings.CutSuffix(remote, Separator+stage); ok && base != "" {
			return "", false
		}
	}
	return remote, true
}

// ValidateBase rejects base names that would make the convention ambiguous:
// an empty name, a name ending in the separator, or a name that already
// carries a known stage suffix (its remote name would collide with another
// stage's resource).
func (c Convention) ValidateBase(base string) error {
	if base == "" {
		return fmt.Errorf("resource base name must not be empty")
	}
	if strings.HasSuffix(base, Separator) {
		return fmt.Errorf("resource base name %q must not end with %q", base, Separator)
	}
	for _, stage := range c.knownStages {
		if strings.HasSuffix(base, Separator+stage) {
			return fmt.Errorf("resource base name %q collides with stage %q", base, stage)
		}
	}
	return nil
}

// ValidateStage rejects stage names the inverse mapping cannot handle.
func ValidateStage(stage string) error {
	if stage == "" {
		return fmt.Errorf("stage name must not be empty")
	}
	if strings.Contains(stage, Separator) {
		return fmt.Errorf("stage name %q must not contain %q", stage, Separator)
	}
	return nil
}
