package lifecycle

import (
	"fmt"

	"github.com/gantryhq/gantry/internal/resource"
)

// Operation is what a plan entry does to its resource.
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Step is one entry of a deployment plan: a handler operation on a single
// resource. The plan's order comes from the static dependency table, never
// computed per run.
type Step struct {
	Op       Operation
	Declared resource.Declared
	// RemoteName is the convention-formatted name the operation targets.
	RemoteName string
}

// Description names the step for logs and partial-failure reports.
func (s Step) Description() string {
	return fmt.Sprintf("%s %s %s", s.Op, s.Declared.Kind, s.RemoteName)
}

func descriptions(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Description()
	}
	return out
}
