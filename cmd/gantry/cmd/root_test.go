package cmd

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/gantryhq/gantry/internal/output"

	"github.com/stretchr/testify/assert"
)

// captureOutput redirects the output package to a buffer for the duration of
// a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevErr := output.Stdout, output.Stderr
	output.Stdout = &buf
	output.Stderr = io.Discard
	t.Cleanup(func() {
		output.Stdout = prevOut
		output.Stderr = prevErr
	})
	return &buf
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "duration minutes", input: "10m", want: 10 * time.Minute},
		{name: "duration seconds", input: "30s", want: 30 * time.Second},
		{name: "bare seconds", input: "600", want: 600 * time.Second},
		{name: "empty defaults", input: "", want: 30 * time.Minute},
		{name: "garbage", input: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeout(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
