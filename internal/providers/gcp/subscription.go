package gcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/resource"

	pubsubapi "google.golang.org/api/pubsub/v1"
)

// subscriptionsAPI is the slice of Pub/Sub the subscription handler needs.
type subscriptionsAPI interface {
	Create(ctx context.Context, name string, sub *pubsubapi.Subscription) error
	Patch(ctx context.Context, name string, req *pubsubapi.UpdateSubscriptionRequest) error
	List(ctx context.Context, project string) ([]*pubsubapi.Subscription, error)
	Delete(ctx context.Context, name string) error
}

type subscriptionsService struct {
	svc *pubsubapi.Service
}

func (s *subscriptionsService) Create(ctx context.Context, name string, sub *pubsubapi.Subscription) error {
	_, err := s.svc.Projects.Subscriptions.Create(name, sub).Context(ctx).Do()
	return err
}

func (s *subscriptionsService) Patch(ctx context.Context, name string, req *pubsubapi.UpdateSubscriptionRequest) error {
	_, err := s.svc.Projects.Subscriptions.Patch(name, req).Context(ctx).Do()
	return err
}

func (s *subscriptionsService) List(ctx context.Context, project string) ([]*pubsubapi.Subscription, error) {
	var out []*pubsubapi.Subscription
	call := s.svc.Projects.Subscriptions.List(project)
	err := call.Pages(ctx, func(resp *pubsubapi.ListSubscriptionsResponse) error {
		out = append(out, resp.Subscriptions...)
		return nil
	})
	return out, err
}

func (s *subscriptionsService) Delete(ctx context.Context, name string) error {
	_, err := s.svc.Projects.Subscriptions.Delete(name).Context(ctx).Do()
	return err
}

// SubscriptionHandler manages push subscriptions that deliver topic messages
// to the function over HTTPS.
type SubscriptionHandler struct {
	env Env
	api subscriptionsAPI
}

func NewSubscriptionHandler(env Env, api subscriptionsAPI) *SubscriptionHandler {
	return &SubscriptionHandler{env: env, api: api}
}

func (h *SubscriptionHandler) Kind() resource.Kind { return resource.KindSubscription }

func (h *SubscriptionHandler) Declared() []resource.Declared {
	var out []resource.Declared
	for _, sub := range h.env.Manifest.Subscriptions {
		out = append(out, resource.Declared{
			Kind: resource.KindSubscription,
			Name: sub.Name,
			Spec: sub,
		})
	}
	return out
}

func (h *SubscriptionHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var subs []*pubsubapi.Subscription
	err := withRetry(ctx, h.env.Log, "list subscriptions", func() error {
		var listErr error
		subs, listErr = h.api.List(ctx, "projects/"+h.env.Config.Project)
		return wrapRemote("list", "subscription", h.env.Config.Project, listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, sub := range subs {
		if sub.Labels[managedByLabel] != constants.ProjectName {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindSubscription,
			Name: lastSegment(sub.Name),
			ID:   sub.Name,
		})
	}
	return remotes, nil
}

func (h *SubscriptionHandler) Create(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Subscription)
	if !ok {
		return fmt.Errorf("subscription %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	name := h.subscriptionName(remoteName)
	return withRetry(ctx, h.env.Log, "create subscription", func() error {
		return wrapRemote("create", "subscription", remoteName,
			h.api.Create(ctx, name, h.desired(name, spec)))
	})
}

// Update patches the mutable fields. The topic and the filter are immutable
// upstream; changing either requires destroying and redeploying.
func (h *SubscriptionHandler) Update(ctx context.Context, d resource.Declared) error {
	spec, ok := d.Spec.(manifest.Subscription)
	if !ok {
		return fmt.Errorf("subscription %s has no spec", d.Name)
	}
	remoteName := h.env.Conv.RemoteName(d.Name)
	name := h.subscriptionName(remoteName)
	return withRetry(ctx, h.env.Log, "update subscription", func() error {
		return wrapRemote("update", "subscription", remoteName,
			h.api.Patch(ctx, name, &pubsubapi.UpdateSubscriptionRequest{
				Subscription: h.desired(name, spec),
				UpdateMask:   "pushConfig,labels",
			}))
	})
}

func (h *SubscriptionHandler) Delete(ctx context.Context, remoteName string) error {
	name := h.subscriptionName(remoteName)
	return withRetry(ctx, h.env.Log, "delete subscription", func() error {
		err := h.api.Delete(ctx, name)
		if err == nil || isNotFound(err) {
			return nil
		}
		return wrapRemote("delete", "subscription", remoteName, err)
	})
}

func (h *SubscriptionHandler) desired(name string, spec manifest.Subscription) *pubsubapi.Subscription {
	return &pubsubapi.Subscription{
		Name:   name,
		Topic:  h.topicName(spec.Topic),
		Filter: spec.Filter,
		Labels: h.env.managedLabels(),
		PushConfig: &pubsubapi.PushConfig{
			PushEndpoint: h.env.FunctionURL(h.env.Conv.RemoteName(h.env.FunctionBase())),
		},
	}
}

func (h *SubscriptionHandler) subscriptionName(remoteName string) string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", h.env.Config.Project, remoteName)
}

// topicName qualifies a bare topic id with the active project. Topics
// declared with a full path stay as declared, which is how an application
// subscribes across projects.
func (h *SubscriptionHandler) topicName(topic string) string {
	if strings.HasPrefix(topic, "projects/") {
		return topic
	}
	return fmt.Sprintf("projects/%s/topics/%s", h.env.Config.Project, topic)
}
