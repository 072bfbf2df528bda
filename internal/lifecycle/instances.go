package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/osb-git-store/internal/otel"
	"github.com/stacklok/osb-git-store/internal/record"
	"github.com/stacklok/osb-git-store/internal/store"
)

// CreateInstance records a new instance. Repeating an identical request is
// accepted, so a create whose push failed can simply be retried. A request
// that differs in plan, parameters or context conflicts with the stored
// record. When a status file is left over from an earlier operation it is
// reset to "preparing deployment".
func (c *Coordinator) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Operation, error) {
	if err := store.ValidateID("instance", req.InstanceID); err != nil {
		return nil, err
	}
	inst, err := newInstanceRecord(req)
	if err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationCreate, InstanceID: req.InstanceID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		existing, err := c.store.ReadInstance(ctx, req.InstanceID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return "", err
		case existing.Deleted:
			return "", fmt.Errorf("%w: %s", ErrInstanceDeleted, req.InstanceID)
		case !sameInstance(existing, inst):
			return "", fmt.Errorf("%w: instance %s", ErrConflict, req.InstanceID)
		}

		if err := c.store.WriteInstance(ctx, inst); err != nil {
			return "", err
		}

		hasStatus, err := c.store.HasStatus(ctx, req.InstanceID)
		if err != nil {
			return "", err
		}
		if hasStatus {
			if err := c.store.ResetStatus(ctx, req.InstanceID, record.DescriptionPreparingDeployment); err != nil {
				return "", err
			}
		}

		return fmt.Sprintf("Created service instance %s", req.InstanceID), nil
	})
}

// newInstanceRecord builds the record stored for req, with its maps in the
// form they read back as
func newInstanceRecord(req CreateInstanceRequest) (*record.Instance, error) {
	parameters, err := normalize("parameters", req.Parameters)
	if err != nil {
		return nil, err
	}
	platformContext, err := normalize("context", req.Context)
	if err != nil {
		return nil, err
	}
	return &record.Instance{
		ID:                  req.InstanceID,
		ServiceDefinitionID: req.ServiceDefinitionID,
		PlanID:              req.PlanID,
		Parameters:          parameters,
		Context:             platformContext,
	}, nil
}

func normalize(field string, m map[string]any) (map[string]any, error) {
	normalized, err := record.NormalizeMap(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, field, err)
	}
	return normalized, nil
}

func sameInstance(existing, candidate *record.Instance) bool {
	return existing.ServiceDefinitionID == candidate.ServiceDefinitionID &&
		existing.PlanID == candidate.PlanID &&
		reflect.DeepEqual(existing.Parameters, candidate.Parameters) &&
		reflect.DeepEqual(existing.Context, candidate.Context)
}

// UpdateInstance changes the plan, parameters or context of an instance and
// resets its status to "preparing service update"
func (c *Coordinator) UpdateInstance(ctx context.Context, req UpdateInstanceRequest) (*Operation, error) {
	if err := store.ValidateID("instance", req.InstanceID); err != nil {
		return nil, err
	}

	parameters, err := normalize("parameters", req.Parameters)
	if err != nil {
		return nil, err
	}
	platformContext, err := normalize("context", req.Context)
	if err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationUpdate, InstanceID: req.InstanceID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		inst, err := c.store.ReadInstance(ctx, req.InstanceID)
		if err != nil {
			return "", err
		}
		if inst.Deleted {
			return "", fmt.Errorf("%w: %s", ErrInstanceDeleted, req.InstanceID)
		}

		if req.PlanID != "" {
			inst.PlanID = req.PlanID
		}
		if req.Parameters != nil {
			inst.Parameters = parameters
		}
		if req.Context != nil {
			inst.Context = platformContext
		}

		if err := c.store.WriteInstance(ctx, inst); err != nil {
			return "", err
		}
		if err := c.store.ResetStatus(ctx, req.InstanceID, record.DescriptionPreparingUpdate); err != nil {
			return "", err
		}

		return fmt.Sprintf("Updated service instance %s", req.InstanceID), nil
	})
}

// DeleteInstance tombstones an instance and resets its status to
// "preparing service deletion". Deleting a tombstone again only restarts the
// polling window, which keeps a failed push retriable.
func (c *Coordinator) DeleteInstance(ctx context.Context, instanceID string) (*Operation, error) {
	if err := store.ValidateID("instance", instanceID); err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationDelete, InstanceID: instanceID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		if err := c.store.MarkDeleted(ctx, instanceID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted service instance %s", instanceID), nil
	})
}

// ReportStatus stores the outcome of the last operation on an instance. It is
// the write path of the external pipeline and goes through the same
// pull, commit and push sequence as the broker operations.
func (c *Coordinator) ReportStatus(ctx context.Context, instanceID string, status *record.Status) (*Operation, error) {
	if err := store.ValidateID("instance", instanceID); err != nil {
		return nil, err
	}

	op := &Operation{Kind: OperationReportStatus, InstanceID: instanceID}
	return c.mutate(ctx, op, func(ctx context.Context) (string, error) {
		if _, err := c.store.ReadInstance(ctx, instanceID); err != nil {
			return "", err
		}
		if err := c.store.WriteStatus(ctx, instanceID, status); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reported status %q for service instance %s", status.State, instanceID), nil
	})
}

// GetLastOperation returns the status of the last operation on an instance
// from the local working copy. It neither pulls nor locks. An instance
// without a status file reports the bootstrap in-progress status, even if
// the instance itself does not exist.
func (c *Coordinator) GetLastOperation(ctx context.Context, instanceID string) (*record.Status, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "lifecycle.GetLastOperation",
		trace.WithAttributes(otel.AttrInstanceID.String(instanceID)))

	status, err := c.store.ReadStatus(ctx, instanceID)
	if err == nil {
		span.SetAttributes(otel.AttrState.String(string(status.State)))
	}
	otel.EndSpan(span, err)
	return status, err
}

// GetInstance returns the record of an instance from the local working copy
func (c *Coordinator) GetInstance(ctx context.Context, instanceID string) (*record.Instance, error) {
	return c.store.ReadInstance(ctx, instanceID)
}

// ListInstances returns all readable instance records from the local working copy
func (c *Coordinator) ListInstances(ctx context.Context) ([]*record.Instance, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "lifecycle.ListInstances")

	instances, err := c.store.ListInstances(ctx)
	if err == nil {
		span.SetAttributes(otel.AttrResultCount.Int(len(instances)))
	}
	otel.EndSpan(span, err)
	return instances, err
}
