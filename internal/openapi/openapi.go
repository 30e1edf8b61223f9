// Package openapi renders the gateway API specification from the declared
// routes. The output is an OpenAPI v2 document with x-google-backend
// extensions, which is the format API Gateway consumes.
package openapi

import (
	"fmt"
	"strings"

	"github.com/gantryhq/gantry/internal/manifest"

	"gopkg.in/yaml.v3"
)

// Backend is the x-google-backend extension attached to every operation. It
// routes the matched request to the deployed function.
type Backend struct {
	Address         string `yaml:"address"`
	PathTranslation string `yaml:"path_translation"`
}

// Operation is one method on one path.
type Operation struct {
	OperationID string              `yaml:"operationId"`
	Responses   map[string]Response `yaml:"responses"`
	Backend     Backend             `yaml:"x-google-backend"`
	Parameters  []PathParameter     `yaml:"parameters,omitempty"`
}

// Response is a documented status code. The rendered document only promises
// a 200; the function behind the gateway defines the real surface.
type Response struct {
	Description string `yaml:"description"`
}

// PathParameter declares one templated path segment.
type PathParameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
	Type     string `yaml:"type"`
}

// Info identifies the rendered API.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Document is an OpenAPI v2 specification.
type Document struct {
	Swagger  string                          `yaml:"swagger"`
	Info     Info                            `yaml:"info"`
	Schemes  []string                        `yaml:"schemes"`
	Produces []string                        `yaml:"produces"`
	Paths    map[string]map[string]Operation `yaml:"paths"`
}

// defaultMethods applies when a route declares none.
var defaultMethods = []string{"GET"}

// Build assembles the specification document for the manifest's routes,
// pointing every operation at backendURL.
func Build(m *manifest.Manifest, backendURL string) (*Document, error) {
	if len(m.Routes) == 0 {
		return nil, fmt.Errorf("manifest %s declares no routes", m.Name)
	}

	paths := make(map[string]map[string]Operation, len(m.Routes))
	for _, route := range m.Routes {
		if _, dup := paths[route.Path]; dup {
			return nil, fmt.Errorf("duplicate route path %q", route.Path)
		}
		methods := route.Methods
		if len(methods) == 0 {
			methods = defaultMethods
		}
		item := make(map[string]Operation, len(methods))
		for _, method := range methods {
			method = strings.ToLower(method)
			if _, dup := item[method]; dup {
				return nil, fmt.Errorf("duplicate method %q on route %q", method, route.Path)
			}
			item[method] = Operation{
				OperationID: operationID(method, route.Path),
				Responses:   map[string]Response{"200": {Description: "OK"}},
				Backend: Backend{
					Address:         backendURL,
					PathTranslation: "APPEND_PATH_TO_ADDRESS",
				},
				Parameters: pathParameters(route.Path),
			}
		}
		paths[route.Path] = item
	}

	return &Document{
		Swagger:  "2.0",
		Info:     Info{Title: m.Name, Version: "1.0.0"},
		Schemes:  []string{"https"},
		Produces: []string{"application/json"},
		Paths:    paths,
	}, nil
}

// Render builds the document and serializes it to YAML.
func Render(m *manifest.Manifest, backendURL string) ([]byte, error) {
	doc, err := Build(m, backendURL)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error rendering openapi document: %w", err)
	}
	return out, nil
}

// operationID derives a stable identifier like "get_users_id" from the
// method and path.
func operationID(method, path string) string {
	cleaned := strings.NewReplacer("{", "", "}", "", "/", "_").Replace(strings.Trim(path, "/"))
	if cleaned == "" {
		cleaned = "root"
	}
	return method + "_" + cleaned
}

// pathParameters extracts {segment} templates as required string parameters.
func pathParameters(path string) []PathParameter {
	var params []PathParameter
	for _, segment := range strings.Split(path, "/") {
		name, ok := strings.CutPrefix(segment, "{")
		if !ok {
			continue
		}
		name, ok = strings.CutSuffix(name, "}")
		if !ok {
			continue
		}
		params = append(params, PathParameter{
			Name:     name,
			In:       "path",
			Required: true,
			Type:     "string",
		})
	}
	return params
}
