// Package record defines the on-disk records of the service instance store and
// their YAML encoding.
package record

// State is the state of the most recent asynchronous operation against an
// instance or binding.
type State string

const (
	// StateInProgress means the operation was accepted and no outcome has been reported yet
	StateInProgress State = "in progress"

	// StateSucceeded means the external pipeline reported success
	StateSucceeded State = "succeeded"

	// StateFailed means the external pipeline reported a failure
	StateFailed State = "failed"
)

// Bootstrap descriptions written or assumed by the store when an operation starts.
const (
	DescriptionPreparingDeployment      = "preparing deployment"
	DescriptionPreparingUpdate          = "preparing service update"
	DescriptionPreparingDeletion        = "preparing service deletion"
	DescriptionPreparingBinding         = "preparing binding"
	DescriptionPreparingBindingDeletion = "preparing binding deletion"
)

// Valid reports whether s is one of the known operation states
func (s State) Valid() bool {
	switch s {
	case StateInProgress, StateSucceeded, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final outcome written by the external pipeline
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Instance is the desired or last known state of one service instance
type Instance struct {
	// ID is the stable identifier of the instance, immutable after creation
	ID string `yaml:"id"`

	// ServiceDefinitionID is the catalog service the instance was provisioned from
	ServiceDefinitionID string `yaml:"serviceDefinitionId"`

	// PlanID is the catalog plan of the instance
	PlanID string `yaml:"planId"`

	// Parameters are the user supplied provisioning parameters
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Context is the platform context of the provisioning request
	Context map[string]any `yaml:"context,omitempty"`

	// Deleted marks the record as a tombstone. It flips once and never reverts.
	Deleted bool `yaml:"deleted"`
}

// Binding is the desired or last known state of one service binding
type Binding struct {
	BindingID           string         `yaml:"bindingId"`
	ServiceInstanceID   string         `yaml:"serviceInstanceId"`
	ServiceDefinitionID string         `yaml:"serviceDefinitionId"`
	PlanID              string         `yaml:"planId"`
	Parameters          map[string]any `yaml:"parameters,omitempty"`
	BindResource        map[string]any `yaml:"bindResource,omitempty"`
	Deleted             bool           `yaml:"deleted"`
}

// Status is the result of the most recent asynchronous operation
type Status struct {
	State       State  `yaml:"status"`
	Description string `yaml:"description"`
}

// BootstrapStatus returns the in-progress status assumed when no status file exists
func BootstrapStatus() *Status {
	return &Status{
		State:       StateInProgress,
		Description: DescriptionPreparingDeployment,
	}
}

// InProgress returns an in-progress status with the given description
func InProgress(description string) *Status {
	return &Status{
		State:       StateInProgress,
		Description: description,
	}
}
