package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteName(t *testing.T) {
	tests := []struct {
		name  string
		stage string
		base  string
		want  string
	}{
		{name: "staged", stage: "dev", base: "fn", want: "fn-dev"},
		{name: "unstaged", stage: "", base: "fn", want: "fn"},
		{name: "base with separator", stage: "prod", base: "app-cleanup", want: "app-cleanup-prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.stage, []string{"dev", "prod"})
			assert.Equal(t, tt.want, c.RemoteName(tt.base))
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		name     string
		stage    string
		remote   string
		wantBase string
		wantOK   bool
	}{
		{name: "own stage", stage: "dev", remote: "fn-dev", wantBase: "fn", wantOK: true},
		{name: "other stage never claimed", stage: "dev", remote: "fn-prod", wantOK: false},
		{name: "unstaged name not claimed by staged run", stage: "dev", remote: "fn", wantOK: false},
		{name: "suffix only", stage: "dev", remote: "-dev", wantOK: false},
		{name: "multi separator base", stage: "dev", remote: "app-cleanup-dev", wantBase: "app-cleanup", wantOK: true},
		{name: "unstaged claims bare name", stage: "", remote: "fn", wantBase: "fn", wantOK: true},
		{name: "unstaged refuses known stage suffix", stage: "", remote: "fn-prod", wantOK: false},
		{name: "unstaged keeps unknown suffix", stage: "", remote: "fn-extra", wantBase: "fn-extra", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.stage, []string{"dev", "prod"})
			base, ok := c.BaseName(tt.remote)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantBase, base)
			}
		})
	}
}

// RemoteName followed by BaseName must round-trip for every declared base:
// this injectivity is what makes orphan detection safe.
func TestRoundTrip(t *testing.T) {
	c := New("dev", []string{"dev", "prod"})
	for _, base := range []string{"fn", "app-cleanup", "app-on-upload"} {
		got, ok := c.BaseName(c.RemoteName(base))
		assert.True(t, ok, base)
		assert.Equal(t, base, got)
	}
}

func TestValidateBase(t *testing.T) {
	c := New("dev", []string{"dev", "prod"})

	assert.NoError(t, c.ValidateBase("fn"))
	assert.NoError(t, c.ValidateBase("app-cleanup"))
	assert.Error(t, c.ValidateBase(""))
	assert.Error(t, c.ValidateBase("fn-"))
	// "fn-prod" deployed to dev would become "fn-prod-dev"; the collision is
	// with an unstaged or prod-scoped run claiming "fn-prod".
	assert.Error(t, c.ValidateBase("fn-prod"))
}

func TestValidateStage(t *testing.T) {
	assert.NoError(t, ValidateStage("dev"))
	assert.Error(t, ValidateStage(""))
	assert.Error(t, ValidateStage("dev-east"))
}
