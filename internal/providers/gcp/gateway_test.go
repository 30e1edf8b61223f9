package gcp

import (
	"context"
	"strings"
	"testing"

	"github.com/gantryhq/gantry/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apigatewayapi "google.golang.org/api/apigateway/v1"
)

type fakeGateways struct {
	calls       []string
	configDocs  [][]byte
	gateways    []*apigatewayapi.ApigatewayGateway
	deletedAPIs []string
}

func (f *fakeGateways) EnsureAPI(_ context.Context, parent, apiID string, _ map[string]string) (string, error) {
	f.calls = append(f.calls, "ensure-api")
	return parent + "/apis/" + apiID, nil
}

func (f *fakeGateways) CreateConfig(_ context.Context, apiName, configID string, doc []byte, _ map[string]string) (string, error) {
	f.calls = append(f.calls, "create-config "+configID)
	f.configDocs = append(f.configDocs, doc)
	return apiName + "/configs/" + configID, nil
}

func (f *fakeGateways) CreateGateway(_ context.Context, _, gatewayID, configName string, _ map[string]string) error {
	f.calls = append(f.calls, "create-gateway "+gatewayID+" -> "+configName)
	return nil
}

func (f *fakeGateways) UpdateGatewayConfig(_ context.Context, name, configName string) error {
	f.calls = append(f.calls, "update-gateway "+name+" -> "+configName)
	return nil
}

func (f *fakeGateways) List(context.Context, string) ([]*apigatewayapi.ApigatewayGateway, error) {
	return f.gateways, nil
}

func (f *fakeGateways) DeleteGateway(_ context.Context, name string) error {
	f.calls = append(f.calls, "delete-gateway "+name)
	return nil
}

func (f *fakeGateways) DeleteAPI(_ context.Context, apiName string) error {
	f.deletedAPIs = append(f.deletedAPIs, apiName)
	return nil
}

func TestGatewayHandler_DeclaredOnlyWithRoutes(t *testing.T) {
	env := testEnv()
	h := NewGatewayHandler(env, &fakeGateways{})
	require.Len(t, h.Declared(), 1)
	assert.Equal(t, "app", h.Declared()[0].Name)

	env.Manifest = &manifest.Manifest{Name: "app"}
	h = NewGatewayHandler(env, &fakeGateways{})
	assert.Empty(t, h.Declared())
}

func TestGatewayHandler_CreateOrdersAPIThenConfigThenGateway(t *testing.T) {
	fake := &fakeGateways{}
	h := NewGatewayHandler(testEnv(), fake)

	require.NoError(t, h.Create(context.Background(), h.Declared()[0]))
	require.Len(t, fake.calls, 3)
	assert.Equal(t, "ensure-api", fake.calls[0])
	assert.True(t, strings.HasPrefix(fake.calls[1], "create-config app-dev-"))
	assert.True(t, strings.HasPrefix(fake.calls[2], "create-gateway app-dev -> "))

	// The uploaded document routes to the staged function.
	require.Len(t, fake.configDocs, 1)
	doc := string(fake.configDocs[0])
	assert.Contains(t, doc, "swagger:")
	assert.Contains(t, doc, "/users")
	assert.Contains(t, doc, "https://us-central1-acme-project.cloudfunctions.net/app-dev")
}

func TestGatewayHandler_UpdateUploadsFreshConfig(t *testing.T) {
	fake := &fakeGateways{}
	h := NewGatewayHandler(testEnv(), fake)

	require.NoError(t, h.Update(context.Background(), h.Declared()[0]))
	require.NoError(t, h.Update(context.Background(), h.Declared()[0]))

	// Configs are immutable upstream, so each update must mint a new id.
	var configIDs []string
	for _, call := range fake.calls {
		if id, ok := strings.CutPrefix(call, "create-config "); ok {
			configIDs = append(configIDs, id)
		}
	}
	require.Len(t, configIDs, 2)
	assert.NotEqual(t, configIDs[0], configIDs[1])
}

func TestGatewayHandler_DeleteRemovesAPI(t *testing.T) {
	fake := &fakeGateways{}
	h := NewGatewayHandler(testEnv(), fake)

	require.NoError(t, h.Delete(context.Background(), "app-dev"))
	assert.Equal(t, []string{"delete-gateway projects/acme-project/locations/us-central1/gateways/app-dev"}, fake.calls)
	assert.Equal(t, []string{"projects/acme-project/locations/global/apis/app-dev"}, fake.deletedAPIs)
}
