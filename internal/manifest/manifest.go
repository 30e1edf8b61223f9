// Package manifest loads and validates the application definition.
//
// The manifest (gantry.yaml) declares the application's resources: HTTP
// routes served through a gateway, topic subscriptions, schedules, storage
// triggers, and jobs. It is read once per invocation and never mutated.
package manifest

import (
	"fmt"
	"os"

	"github.com/gantryhq/gantry/internal/constants"
	apperrors "github.com/gantryhq/gantry/internal/errors"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Manifest is the application definition.
type Manifest struct {
	// Name is the application name; it is the base name of the function
	// and gateway and the prefix of every other resource base name.
	Name      string `yaml:"name" validate:"required"`
	EntryFile string `yaml:"entry_file"`
	Runtime   string `yaml:"runtime"`

	Routes          []Route          `yaml:"routes" validate:"dive"`
	Subscriptions   []Subscription   `yaml:"subscriptions" validate:"dive"`
	Schedules       []Schedule       `yaml:"schedules" validate:"dive"`
	StorageTriggers []StorageTrigger `yaml:"storage_triggers" validate:"dive"`
	Jobs            []Job            `yaml:"jobs" validate:"dive"`
}

// Route declares one HTTP route exposed through the API gateway.
type Route struct {
	Path    string   `yaml:"path" validate:"required,startswith=/"`
	Methods []string `yaml:"methods"`
}

// Subscription declares a push subscription on a Pub/Sub topic.
type Subscription struct {
	Name   string `yaml:"name" validate:"required"`
	Topic  string `yaml:"topic" validate:"required"`
	Filter string `yaml:"filter"`
}

// Schedule declares a cron-triggered invocation of the function.
type Schedule struct {
	Name     string `yaml:"name" validate:"required"`
	Cron     string `yaml:"cron" validate:"required"`
	Timezone string `yaml:"timezone"`
}

// StorageTrigger declares an invocation on a storage bucket event.
type StorageTrigger struct {
	Name   string `yaml:"name" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
	// Event is the storage event type suffix (finalized, deleted,
	// archived, metadataUpdated).
	Event string `yaml:"event"`
}

// Job declares a container job run on demand or per schedule.
type Job struct {
	Name    string   `yaml:"name" validate:"required"`
	Image   string   `yaml:"image" validate:"required"`
	Command []string `yaml:"command"`
	Args    []string `yaml:"args"`
	Tasks   int64    `yaml:"tasks" validate:"gte=0"`
}

var validate = validator.New()

// Load reads and validates the manifest at path. A missing manifest is a
// local environment error naming the path, so the user knows which file to
// create or which directory to run from.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.LocalEnvironment(
				fmt.Sprintf("missing %s; make sure you are in the application directory", path), err)
		}
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing manifest %s: %w", path, err)
	}

	m.applyDefaults()

	if err = validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.EntryFile == "" {
		m.EntryFile = constants.DefaultEntryFile
	}
	if m.Runtime == "" {
		m.Runtime = constants.DefaultRuntime
	}
	for i := range m.StorageTriggers {
		if m.StorageTriggers[i].Event == "" {
			m.StorageTriggers[i].Event = "finalized"
		}
	}
	for i := range m.Jobs {
		if m.Jobs[i].Tasks == 0 {
			m.Jobs[i].Tasks = 1
		}
	}
}

// JobByName returns the declared job with the given name.
func (m *Manifest) JobByName(name string) (Job, bool) {
	for _, j := range m.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}
