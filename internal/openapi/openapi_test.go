package openapi

import (
	"testing"

	"github.com/gantryhq/gantry/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const backend = "https://us-central1-p.cloudfunctions.net/app-dev"

func TestBuild(t *testing.T) {
	m := &manifest.Manifest{
		Name: "app",
		Routes: []manifest.Route{
			{Path: "/users", Methods: []string{"GET", "POST"}},
			{Path: "/users/{id}"},
		},
	}

	doc, err := Build(m, backend)
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "app", doc.Info.Title)
	require.Len(t, doc.Paths, 2)

	users := doc.Paths["/users"]
	require.Len(t, users, 2)
	assert.Equal(t, "get_users", users["get"].OperationID)
	assert.Equal(t, backend, users["post"].Backend.Address)
	assert.Equal(t, "APPEND_PATH_TO_ADDRESS", users["post"].Backend.PathTranslation)

	// Undeclared methods default to GET, and templated segments become
	// required path parameters.
	byID := doc.Paths["/users/{id}"]
	require.Len(t, byID, 1)
	op := byID["get"]
	assert.Equal(t, "get_users_id", op.OperationID)
	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "id", op.Parameters[0].Name)
	assert.True(t, op.Parameters[0].Required)
}

func TestBuild_NoRoutes(t *testing.T) {
	_, err := Build(&manifest.Manifest{Name: "app"}, backend)
	assert.Error(t, err)
}

func TestBuild_DuplicatePath(t *testing.T) {
	m := &manifest.Manifest{
		Name: "app",
		Routes: []manifest.Route{
			{Path: "/users"},
			{Path: "/users"},
		},
	}
	_, err := Build(m, backend)
	assert.Error(t, err)
}

func TestRender_RoundTrips(t *testing.T) {
	m := &manifest.Manifest{
		Name:   "app",
		Routes: []manifest.Route{{Path: "/ping"}},
	}

	out, err := Render(m, backend)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, backend, doc.Paths["/ping"]["get"].Backend.Address)
}
