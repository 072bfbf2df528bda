package lifecycle

import (
	"context"
	"errors"

	"github.com/stacklok/osb-git-store/internal/record"
)

//go:generate mockgen -destination=mocks/mock_instance_store.go -package=mocks -source=types.go InstanceStore

// InstanceStore reads and writes records inside the working copy.
// *store.Store implements it.
type InstanceStore interface {
	WriteInstance(ctx context.Context, inst *record.Instance) error
	ReadInstance(ctx context.Context, id string) (*record.Instance, error)
	ReadStatus(ctx context.Context, id string) (*record.Status, error)
	HasStatus(ctx context.Context, id string) (bool, error)
	WriteStatus(ctx context.Context, id string, status *record.Status) error
	ResetStatus(ctx context.Context, id, description string) error
	MarkDeleted(ctx context.Context, id string) error
	ListInstances(ctx context.Context) ([]*record.Instance, error)

	WriteBinding(ctx context.Context, b *record.Binding) error
	ReadBinding(ctx context.Context, instanceID, bindingID string) (*record.Binding, error)
	ReadBindingStatus(ctx context.Context, instanceID, bindingID string) (*record.Status, error)
	WriteBindingStatus(ctx context.Context, instanceID, bindingID string, status *record.Status) error
	MarkBindingDeleted(ctx context.Context, instanceID, bindingID string) error
	ListBindings(ctx context.Context, instanceID string) ([]*record.Binding, error)
}

var (
	// ErrConflict is returned when a create targets an existing record with different attributes
	ErrConflict = errors.New("record already exists with different attributes")

	// ErrInstanceDeleted is returned when an operation targets a tombstoned instance
	ErrInstanceDeleted = errors.New("instance has been deleted")

	// ErrInvalidRequest is returned for request maps that cannot be stored as YAML
	ErrInvalidRequest = errors.New("invalid request")
)

// OperationKind names a mutating operation
type OperationKind string

const (
	OperationCreate       OperationKind = "create"
	OperationUpdate       OperationKind = "update"
	OperationDelete       OperationKind = "delete"
	OperationBind         OperationKind = "bind"
	OperationUnbind       OperationKind = "unbind"
	OperationReportStatus OperationKind = "report-status"
)

// Operation is the handle returned once a mutation has been committed and pushed.
// Its status is polled with GetLastOperation or GetLastBindingOperation.
type Operation struct {
	// Token is an opaque identifier of this operation
	Token string `json:"token"`

	Kind       OperationKind `json:"kind"`
	InstanceID string        `json:"instanceId"`
	BindingID  string        `json:"bindingId,omitempty"`
}

// CreateInstanceRequest describes a provisioning request
type CreateInstanceRequest struct {
	InstanceID          string
	ServiceDefinitionID string
	PlanID              string
	Parameters          map[string]any
	Context             map[string]any
}

// UpdateInstanceRequest describes an update request. Empty fields keep the
// stored values.
type UpdateInstanceRequest struct {
	InstanceID string
	PlanID     string
	Parameters map[string]any
	Context    map[string]any
}

// CreateBindingRequest describes a binding request
type CreateBindingRequest struct {
	InstanceID          string
	BindingID           string
	ServiceDefinitionID string
	PlanID              string
	Parameters          map[string]any
	BindResource        map[string]any
}
