package gcp

import (
	"context"
	"testing"

	"github.com/gantryhq/gantry/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pubsubapi "google.golang.org/api/pubsub/v1"
)

type fakeSubscriptions struct {
	created map[string]*pubsubapi.Subscription
	patched map[string]*pubsubapi.UpdateSubscriptionRequest
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{
		created: map[string]*pubsubapi.Subscription{},
		patched: map[string]*pubsubapi.UpdateSubscriptionRequest{},
	}
}

func (f *fakeSubscriptions) Create(_ context.Context, name string, sub *pubsubapi.Subscription) error {
	f.created[name] = sub
	return nil
}

func (f *fakeSubscriptions) Patch(_ context.Context, name string, req *pubsubapi.UpdateSubscriptionRequest) error {
	f.patched[name] = req
	return nil
}

func (f *fakeSubscriptions) List(context.Context, string) ([]*pubsubapi.Subscription, error) {
	return nil, nil
}

func (f *fakeSubscriptions) Delete(context.Context, string) error { return nil }

func TestSubscriptionHandler_CreateBuildsPushSubscription(t *testing.T) {
	env := testEnv()
	env.Manifest.Subscriptions = []manifest.Subscription{
		{Name: "app-orders", Topic: "orders", Filter: `attributes.region = "eu"`},
	}
	fake := newFakeSubscriptions()
	h := NewSubscriptionHandler(env, fake)

	declared := h.Declared()
	require.Len(t, declared, 1)
	require.NoError(t, h.Create(context.Background(), declared[0]))

	name := "projects/acme-project/subscriptions/app-orders-dev"
	sub := fake.created[name]
	require.NotNil(t, sub)
	assert.Equal(t, "projects/acme-project/topics/orders", sub.Topic)
	assert.Equal(t, `attributes.region = "eu"`, sub.Filter)
	assert.Equal(t,
		"https://us-central1-acme-project.cloudfunctions.net/app-dev",
		sub.PushConfig.PushEndpoint)
}

func TestSubscriptionHandler_UpdateLeavesImmutableFields(t *testing.T) {
	env := testEnv()
	env.Manifest.Subscriptions = []manifest.Subscription{{Name: "app-orders", Topic: "orders"}}
	fake := newFakeSubscriptions()
	h := NewSubscriptionHandler(env, fake)

	require.NoError(t, h.Update(context.Background(), h.Declared()[0]))

	req := fake.patched["projects/acme-project/subscriptions/app-orders-dev"]
	require.NotNil(t, req)
	assert.Equal(t, "pushConfig,labels", req.UpdateMask)
}

func TestSubscriptionHandler_TopicQualification(t *testing.T) {
	h := NewSubscriptionHandler(testEnv(), newFakeSubscriptions())

	assert.Equal(t, "projects/acme-project/topics/orders", h.topicName("orders"))
	assert.Equal(t, "projects/other/topics/orders", h.topicName("projects/other/topics/orders"))
}
