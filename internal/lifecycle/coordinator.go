// Package lifecycle sequences repository synchronization with record
// mutations. Every mutating operation runs pull, mutate, commit and push while
// holding the working copy lock; status polls only read local files.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/osb-git-store/internal/git"
	"github.com/stacklok/osb-git-store/internal/otel"
	"github.com/stacklok/osb-git-store/internal/telemetry"
)

// DefaultCommitMessagePrefix starts every commit message written by the coordinator
const DefaultCommitMessagePrefix = "OSB API"

const tracerName = "github.com/stacklok/osb-git-store/lifecycle"

// Coordinator is the entry point for instance and binding operations
type Coordinator struct {
	repo          git.Repository
	store         InstanceStore
	messagePrefix string
	tracer        trace.Tracer
	metrics       *telemetry.OperationMetrics
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithCommitMessagePrefix sets the prefix of commit messages
func WithCommitMessagePrefix(prefix string) Option {
	return func(c *Coordinator) {
		if prefix != "" {
			c.messagePrefix = prefix
		}
	}
}

// WithTracerProvider enables spans for operations
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMetrics records operation durations
func WithMetrics(metrics *telemetry.OperationMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// New creates a Coordinator operating on repo through store
func New(repo git.Repository, store InstanceStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:          repo,
		store:         store,
		messagePrefix: DefaultCommitMessagePrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// mutation applies a change to the working copy and returns the commit summary
type mutation func(ctx context.Context) (summary string, err error)

// mutate runs apply between a pull and a commit plus push, holding the
// working copy lock throughout. On push failure the local commit is kept so
// that retrying the same operation only repeats the push.
func (c *Coordinator) mutate(ctx context.Context, op *Operation, apply mutation) (_ *Operation, err error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, c.tracer, "lifecycle."+string(op.Kind),
		otel.OperationAttributes(string(op.Kind), op.InstanceID, op.BindingID))
	defer func() {
		otel.EndSpan(span, err)
		c.metrics.RecordOperation(ctx, string(op.Kind), time.Since(start), err == nil)
	}()

	log := slog.Default().With("operation", op.Kind, "instance", op.InstanceID)
	if op.BindingID != "" {
		log = log.With("binding", op.BindingID)
	}

	unlock, err := c.repo.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := c.repo.Pull(ctx); err != nil {
		return nil, err
	}

	summary, err := apply(ctx)
	if err != nil {
		return nil, err
	}

	// Files are written; finish the commit and push even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := c.repo.Commit(ctx, c.commitMessage(summary)); err != nil {
		return nil, err
	}
	if err := c.repo.Push(ctx); err != nil {
		log.ErrorContext(ctx, "Push failed, local commit kept for retry", "error", err)
		return nil, err
	}

	op.Token = uuid.NewString()
	log.InfoContext(ctx, "Operation accepted", "token", op.Token, "duration", time.Since(start).String())
	return op, nil
}

func (c *Coordinator) commitMessage(summary string) string {
	return fmt.Sprintf("%s: %s", c.messagePrefix, summary)
}
