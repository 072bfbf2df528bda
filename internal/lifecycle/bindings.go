package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/stacklok/osb-git-store/internal/record"
	"github.com/stacklok/osb-git-store/internal/store"
)

func validateBinding(instanceID, bindingID string) error {
	if err := store.ValidateID("instance", instanceID); err != nil {
		return err
	}
	return store.ValidateID("binding", bindingID)
}

// CreateBinding records a binding of a live instance and sets its status to
// "preparing binding"
func (c *Coordinator) CreateBinding(ctx context.Context, req CreateBindingRequest) (*Operation, error) {
	if err := validateBinding(req.InstanceID, req.BindingID); err != nil {
		return nil, err
	}

	binding, err := newBindingRecord(req)
	if err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationBind, InstanceID: req.InstanceID, BindingID: req.BindingID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		inst, err := c.store.ReadInstance(ctx, req.InstanceID)
		if err != nil {
			return "", err
		}
		if inst.Deleted {
			return "", fmt.Errorf("%w: %s", ErrInstanceDeleted, req.InstanceID)
		}

		existing, err := c.store.ReadBinding(ctx, req.InstanceID, req.BindingID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return "", err
		case existing.Deleted || !sameBinding(existing, binding):
			return "", fmt.Errorf("%w: binding %s", ErrConflict, req.BindingID)
		}

		if err := c.store.WriteBinding(ctx, binding); err != nil {
			return "", err
		}
		if err := c.store.WriteBindingStatus(ctx, req.InstanceID, req.BindingID,
			record.InProgress(record.DescriptionPreparingBinding)); err != nil {
			return "", err
		}

		return fmt.Sprintf("Created binding %s for service instance %s", req.BindingID, req.InstanceID), nil
	})
}

func newBindingRecord(req CreateBindingRequest) (*record.Binding, error) {
	parameters, err := normalize("parameters", req.Parameters)
	if err != nil {
		return nil, err
	}
	bindResource, err := normalize("bindResource", req.BindResource)
	if err != nil {
		return nil, err
	}
	return &record.Binding{
		BindingID:           req.BindingID,
		ServiceInstanceID:   req.InstanceID,
		ServiceDefinitionID: req.ServiceDefinitionID,
		PlanID:              req.PlanID,
		Parameters:          parameters,
		BindResource:        bindResource,
	}, nil
}

func sameBinding(existing, candidate *record.Binding) bool {
	return existing.ServiceDefinitionID == candidate.ServiceDefinitionID &&
		existing.PlanID == candidate.PlanID &&
		reflect.DeepEqual(existing.Parameters, candidate.Parameters) &&
		reflect.DeepEqual(existing.BindResource, candidate.BindResource)
}

// DeleteBinding tombstones a binding and resets its status to
// "preparing binding deletion"
func (c *Coordinator) DeleteBinding(ctx context.Context, instanceID, bindingID string) (*Operation, error) {
	if err := validateBinding(instanceID, bindingID); err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationUnbind, InstanceID: instanceID, BindingID: bindingID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		if err := c.store.MarkBindingDeleted(ctx, instanceID, bindingID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted binding %s of service instance %s", bindingID, instanceID), nil
	})
}

// ReportBindingStatus stores the outcome of the last operation on a binding
func (c *Coordinator) ReportBindingStatus(
	ctx context.Context, instanceID, bindingID string, status *record.Status,
) (*Operation, error) {
	if err := validateBinding(instanceID, bindingID); err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationReportStatus, InstanceID: instanceID, BindingID: bindingID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		if _, err := c.store.ReadBinding(ctx, instanceID, bindingID); err != nil {
			return "", err
		}
		if err := c.store.WriteBindingStatus(ctx, instanceID, bindingID, status); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reported status %q for binding %s of service instance %s",
			status.State, bindingID, instanceID), nil
	})
}

// GetLastBindingOperation returns the status of the last operation on a
// binding from the local working copy, without pulling or locking
func (c *Coordinator) GetLastBindingOperation(ctx context.Context, instanceID, bindingID string) (*record.Status, error) {
	return c.store.ReadBindingStatus(ctx, instanceID, bindingID)
}

// GetBinding returns a binding record from the local working copy
func (c *Coordinator) GetBinding(ctx context.Context, instanceID, bindingID string) (*record.Binding, error) {
	return c.store.ReadBinding(ctx, instanceID, bindingID)
}

// ListBindings returns the binding records of an instance from the local working copy
func (c *Coordinator) ListBindings(ctx context.Context, instanceID string) ([]*record.Binding, error) {
	return c.store.ListBindings(ctx, instanceID)
}
