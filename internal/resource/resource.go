// Package resource defines the closed set of resource kinds gantry manages
// and the handler contract each kind implements.
package resource

import (
	"context"
	"fmt"
)

// Kind identifies one of the resource kinds the application framework
// understands. The set is closed: dependency ordering and handler selection
// switch over it, so adding a kind means extending the tables here.
type Kind int

const (
	KindArtifact Kind = iota
	KindFunction
	KindGateway
	KindSubscription
	KindSchedule
	KindStorageTrigger
	KindJob
)

var kindNames = map[Kind]string{
	KindArtifact:       "artifact",
	KindFunction:       "function",
	KindGateway:        "gateway",
	KindSubscription:   "subscription",
	KindSchedule:       "schedule",
	KindStorageTrigger: "storage-trigger",
	KindJob:            "job",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DeployOrder is the static dependency order for deployment. Later kinds
// reference earlier ones by identifier (a gateway routes to a function, a
// function's source lives in the artifact bucket), so the order is a
// correctness requirement, not an optimization.
var DeployOrder = []Kind{
	KindArtifact,
	KindFunction,
	KindGateway,
	KindSubscription,
	KindSchedule,
	KindStorageTrigger,
	KindJob,
}

// DestroyOrder is DeployOrder reversed: bindings first, then the function,
// then stored artifacts.
func DestroyOrder() []Kind {
	out := make([]Kind, len(DeployOrder))
	for i, k := range DeployOrder {
		out[len(DeployOrder)-1-i] = k
	}
	return out
}

// Declared is one application-declared resource: its kind, its base name
// (before stage suffixing), and the kind-specific desired spec. Immutable
// for the duration of one command invocation.
type Declared struct {
	Kind Kind
	// Name is the base name; the naming convention derives the remote name.
	Name string
	// Spec holds the kind-specific desired configuration (routes, filters,
	// cron expression, ...). Handlers down-cast it.
	Spec any
}

// Remote is a resource discovered by a listing call: its kind, its
// convention-formatted name, and the provider's fully-qualified identifier.
// Remote values are transient; nothing persists them between invocations.
type Remote struct {
	Kind Kind
	// Name is the convention-formatted resource name (e.g. "fn-dev").
	Name string
	// ID is the provider's fully-qualified identifier, when it differs from
	// Name (e.g. "projects/p/locations/l/functions/fn-dev").
	ID string
}

// Handler knows how to manage one resource kind remotely. Implementations
// hold no mutable state between calls; all side effects are remote API
// mutations.
type Handler interface {
	Kind() Kind

	// Declared returns the desired resources of this kind for the current
	// application and stage, base names already validated against the
	// naming convention.
	Declared() []Declared

	// ListRemote returns the remote resources of this kind whose names
	// match the naming convention for this application. Ordering is not
	// guaranteed. Results include resources of all stages; callers filter
	// through the convention's inverse mapping.
	ListRemote(ctx context.Context) ([]Remote, error)

	// Create creates the resource remotely. If it already exists the
	// handler returns a conflict error; the orchestrator decides between
	// aborting and updating based on the force flag.
	Create(ctx context.Context, d Declared) error

	// Update overwrites the remote resource with the declared spec.
	Update(ctx context.Context, d Declared) error

	// Delete removes the remote resource by its convention-formatted name.
	// A resource already removed out-of-band is treated as success.
	Delete(ctx context.Context, remoteName string) error
}

// Registry holds exactly one handler per kind.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry builds a registry from the given handlers. A duplicate kind is
// a programming error and fails construction.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	m := make(map[Kind]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := m[h.Kind()]; dup {
			return nil, fmt.Errorf("duplicate handler for kind %s", h.Kind())
		}
		m[h.Kind()] = h
	}
	return &Registry{handlers: m}, nil
}

// Handler returns the handler for a kind, if registered.
func (r *Registry) Handler(k Kind) (Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// InDeployOrder returns registered handlers in deployment dependency order.
func (r *Registry) InDeployOrder() []Handler {
	return r.inOrder(DeployOrder)
}

// InDestroyOrder returns registered handlers in teardown order.
func (r *Registry) InDestroyOrder() []Handler {
	return r.inOrder(DestroyOrder())
}

func (r *Registry) inOrder(order []Kind) []Handler {
	out := make([]Handler, 0, len(r.handlers))
	for _, k := range order {
		if h, ok := r.handlers[k]; ok {
			out = append(out, h)
		}
	}
	return out
}
