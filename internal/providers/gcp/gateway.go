package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/openapi"
	"github.com/gantryhq/gantry/internal/resource"

	"github.com/google/uuid"
	apigatewayapi "google.golang.org/api/apigateway/v1"
)

// gatewaysAPI is the slice of API Gateway the gateway handler needs. APIs
// and their configs live in the global location; gateways are regional.
// Mutations block until the underlying operation finishes.
type gatewaysAPI interface {
	// EnsureAPI creates the API if missing and returns its resource name.
	EnsureAPI(ctx context.Context, parent, apiID string, labels map[string]string) (string, error)
	// CreateConfig uploads an immutable API config and returns its resource name.
	CreateConfig(ctx context.Context, apiName, configID string, doc []byte, labels map[string]string) (string, error)
	CreateGateway(ctx context.Context, parent, gatewayID, configName string, labels map[string]string) error
	// UpdateGatewayConfig points an existing gateway at a new config.
	UpdateGatewayConfig(ctx context.Context, name, configName string) error
	List(ctx context.Context, parent string) ([]*apigatewayapi.ApigatewayGateway, error)
	DeleteGateway(ctx context.Context, name string) error
	// DeleteAPI removes the API together with all of its configs.
	DeleteAPI(ctx context.Context, apiName string) error
}

type gatewaysService struct {
	svc *apigatewayapi.Service
}

func (s *gatewaysService) EnsureAPI(ctx context.Context, parent, apiID string, labels map[string]string) (string, error) {
	name := parent + "/apis/" + apiID
	if _, err := s.svc.Projects.Locations.Apis.Get(name).Context(ctx).Do(); err == nil {
		return name, nil
	} else if !isNotFound(err) {
		return "", err
	}

	op, err := s.svc.Projects.Locations.Apis.Create(parent, &apigatewayapi.ApigatewayApi{
		DisplayName: apiID,
		Labels:      labels,
	}).ApiId(apiID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if err := s.await(ctx, op.Name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *gatewaysService) CreateConfig(ctx context.Context, apiName, configID string, doc []byte, labels map[string]string) (string, error) {
	op, err := s.svc.Projects.Locations.Apis.Configs.Create(apiName, &apigatewayapi.ApigatewayApiConfig{
		DisplayName: configID,
		Labels:      labels,
		OpenapiDocuments: []*apigatewayapi.ApigatewayApiConfigOpenApiDocument{{
			Document: &apigatewayapi.ApigatewayApiConfigFile{
				Path:     "openapi.yaml",
				Contents: base64.StdEncoding.EncodeToString(doc),
			},
		}},
	}).ApiConfigId(configID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if err := s.await(ctx, op.Name); err != nil {
		return "", err
	}
	return apiName + "/configs/" + configID, nil
}

func (s *gatewaysService) CreateGateway(ctx context.Context, parent, gatewayID, configName string, labels map[string]string) error {
	op, err := s.svc.Projects.Locations.Gateways.Create(parent, &apigatewayapi.ApigatewayGateway{
		DisplayName: gatewayID,
		ApiConfig:   configName,
		Labels:      labels,
	}).GatewayId(gatewayID).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *gatewaysService) UpdateGatewayConfig(ctx context.Context, name, configName string) error {
	op, err := s.svc.Projects.Locations.Gateways.Patch(name, &apigatewayapi.ApigatewayGateway{
		ApiConfig: configName,
	}).UpdateMask("apiConfig").Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *gatewaysService) List(ctx context.Context, parent string) ([]*apigatewayapi.ApigatewayGateway, error) {
	var out []*apigatewayapi.ApigatewayGateway
	call := s.svc.Projects.Locations.Gateways.List(parent)
	err := call.Pages(ctx, func(resp *apigatewayapi.ApigatewayListGatewaysResponse) error {
		out = append(out, resp.Gateways...)
		return nil
	})
	return out, err
}

func (s *gatewaysService) DeleteGateway(ctx context.Context, name string) error {
	op, err := s.svc.Projects.Locations.Gateways.Delete(name).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *gatewaysService) DeleteAPI(ctx context.Context, apiName string) error {
	// Configs block API deletion, so they go first.
	var configs []string
	err := s.svc.Projects.Locations.Apis.Configs.List(apiName).
		Pages(ctx, func(resp *apigatewayapi.ApigatewayListApiConfigsResponse) error {
			for _, cfg := range resp.ApiConfigs {
				configs = append(configs, cfg.Name)
			}
			return nil
		})
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		op, err := s.svc.Projects.Locations.Apis.Configs.Delete(cfg).Context(ctx).Do()
		if err != nil {
			return err
		}
		if err := s.await(ctx, op.Name); err != nil {
			return err
		}
	}
	op, err := s.svc.Projects.Locations.Apis.Delete(apiName).Context(ctx).Do()
	if err != nil {
		return err
	}
	return s.await(ctx, op.Name)
}

func (s *gatewaysService) await(ctx context.Context, opName string) error {
	for {
		op, err := s.svc.Projects.Locations.Operations.Get(opName).Context(ctx).Do()
		if err != nil {
			return err
		}
		if op.Done {
			if op.Error != nil {
				return fmt.Errorf("operation %s failed: %s", opName, op.Error.Message)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// GatewayHandler manages the API Gateway triple (API, config, gateway) that
// fronts the function's HTTP routes. Configs are immutable upstream, so an
// update uploads a fresh config under a unique id and repoints the gateway.
type GatewayHandler struct {
	env Env
	api gatewaysAPI
}

func NewGatewayHandler(env Env, api gatewaysAPI) *GatewayHandler {
	return &GatewayHandler{env: env, api: api}
}

func (h *GatewayHandler) Kind() resource.Kind { return resource.KindGateway }

func (h *GatewayHandler) Declared() []resource.Declared {
	if len(h.env.Manifest.Routes) == 0 {
		return nil
	}
	return []resource.Declared{{
		Kind: resource.KindGateway,
		Name: h.env.FunctionBase(),
	}}
}

func (h *GatewayHandler) ListRemote(ctx context.Context) ([]resource.Remote, error) {
	var gateways []*apigatewayapi.ApigatewayGateway
	err := withRetry(ctx, h.env.Log, "list gateways", func() error {
		var listErr error
		gateways, listErr = h.api.List(ctx, h.env.locationParent())
		return wrapRemote("list", "gateway", h.env.locationParent(), listErr)
	})
	if err != nil {
		return nil, err
	}

	var remotes []resource.Remote
	for _, gw := range gateways {
		if gw.Labels[managedByLabel] != constants.ProjectName {
			continue
		}
		remotes = append(remotes, resource.Remote{
			Kind: resource.KindGateway,
			Name: lastSegment(gw.Name),
			ID:   gw.Name,
		})
	}
	return remotes, nil
}

func (h *GatewayHandler) Create(ctx context.Context, d resource.Declared) error {
	remoteName := h.env.Conv.RemoteName(d.Name)
	return withRetry(ctx, h.env.Log, "create gateway", func() error {
		configName, err := h.pushConfig(ctx, remoteName)
		if err != nil {
			return err
		}
		return wrapRemote("create", "gateway", remoteName,
			h.api.CreateGateway(ctx, h.env.locationParent(), remoteName, configName, h.env.managedLabels()))
	})
}

func (h *GatewayHandler) Update(ctx context.Context, d resource.Declared) error {
	remoteName := h.env.Conv.RemoteName(d.Name)
	return withRetry(ctx, h.env.Log, "update gateway", func() error {
		configName, err := h.pushConfig(ctx, remoteName)
		if err != nil {
			return err
		}
		return wrapRemote("update", "gateway", remoteName,
			h.api.UpdateGatewayConfig(ctx, h.gatewayName(remoteName), configName))
	})
}

func (h *GatewayHandler) Delete(ctx context.Context, remoteName string) error {
	return withRetry(ctx, h.env.Log, "delete gateway", func() error {
		if err := h.api.DeleteGateway(ctx, h.gatewayName(remoteName)); err != nil && !isNotFound(err) {
			return wrapRemote("delete", "gateway", remoteName, err)
		}
		if err := h.api.DeleteAPI(ctx, h.apiName(remoteName)); err != nil && !isNotFound(err) {
			return wrapRemote("delete API for", "gateway", remoteName, err)
		}
		return nil
	})
}

// pushConfig ensures the API exists and uploads the current route
// specification as a new immutable config.
func (h *GatewayHandler) pushConfig(ctx context.Context, remoteName string) (string, error) {
	doc, err := openapi.Render(h.env.Manifest, h.env.FunctionURL(h.env.Conv.RemoteName(h.env.FunctionBase())))
	if err != nil {
		return "", err
	}
	apiName, err := h.api.EnsureAPI(ctx, h.globalParent(), remoteName, h.env.managedLabels())
	if err != nil {
		return "", wrapRemote("ensure API for", "gateway", remoteName, err)
	}
	configID := fmt.Sprintf("%s-%s", remoteName, uuid.NewString()[:8])
	configName, err := h.api.CreateConfig(ctx, apiName, configID, doc, h.env.managedLabels())
	if err != nil {
		return "", wrapRemote("create config for", "gateway", remoteName, err)
	}
	return configName, nil
}

func (h *GatewayHandler) globalParent() string {
	return fmt.Sprintf("projects/%s/locations/global", h.env.Config.Project)
}

func (h *GatewayHandler) gatewayName(remoteName string) string {
	return h.env.locationParent() + "/gateways/" + remoteName
}

func (h *GatewayHandler) apiName(remoteName string) string {
	return h.globalParent() + "/apis/" + remoteName
}
