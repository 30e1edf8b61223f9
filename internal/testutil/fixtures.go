// Package testutil provides shared testing utilities and helpers.
package testutil

import (
	"log/slog"
	"os"

	"github.com/gantryhq/gantry/internal/manifest"
)

// ManifestBuilder provides a fluent interface for building test manifests.
type ManifestBuilder struct {
	man *manifest.Manifest
}

// NewManifestBuilder creates a new ManifestBuilder with sensible defaults.
func NewManifestBuilder(name string) *ManifestBuilder {
	return &ManifestBuilder{
		man: &manifest.Manifest{
			Name:      name,
			Runtime:   "python311",
			EntryFile: "main.py",
		},
	}
}

// WithRoute adds an HTTP route.
func (b *ManifestBuilder) WithRoute(path string, methods ...string) *ManifestBuilder {
	b.man.Routes = append(b.man.Routes, manifest.Route{Path: path, Methods: methods})
	return b
}

// WithSubscription adds a topic subscription.
func (b *ManifestBuilder) WithSubscription(name, topic string) *ManifestBuilder {
	b.man.Subscriptions = append(b.man.Subscriptions, manifest.Subscription{Name: name, Topic: topic})
	return b
}

// WithSchedule adds a cron schedule.
func (b *ManifestBuilder) WithSchedule(name, cron string) *ManifestBuilder {
	b.man.Schedules = append(b.man.Schedules, manifest.Schedule{Name: name, Cron: cron})
	return b
}

// WithStorageTrigger adds a storage trigger on the given bucket.
func (b *ManifestBuilder) WithStorageTrigger(name, bucket, event string) *ManifestBuilder {
	b.man.StorageTriggers = append(b.man.StorageTriggers,
		manifest.StorageTrigger{Name: name, Bucket: bucket, Event: event})
	return b
}

// WithJob adds a container job.
func (b *ManifestBuilder) WithJob(name, image string, command ...string) *ManifestBuilder {
	b.man.Jobs = append(b.man.Jobs, manifest.Job{Name: name, Image: image, Command: command, Tasks: 1})
	return b
}

// Build returns the constructed Manifest.
func (b *ManifestBuilder) Build() *manifest.Manifest {
	return b.man
}

// TestLogger creates a logger suitable for testing (outputs to stderr).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}))
}

// SilentLogger creates a logger that discards all output.
func SilentLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
