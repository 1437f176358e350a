// Package activity adapts external infrastructure operations into
// classified, deadline-bounded workflow activities.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allstar-forge/forge/pkg/canonicalize"
)

// Runner abstracts the actual execution of an infrastructure
// operation. Implementations wrap terraform, a provisioning API, or a
// stub for tests.
type Runner interface {
	Run(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

// Adapter binds one named operation to a Runner under a fixed
// per-attempt deadline. Adapters are stateless; the same adapter
// serves every plan.
type Adapter struct {
	name    string
	timeout time.Duration
	runner  Runner
}

// NewAdapter builds an adapter for one operation.
func NewAdapter(name string, timeout time.Duration, runner Runner) *Adapter {
	return &Adapter{name: name, timeout: timeout, runner: runner}
}

// Name returns the operation name the adapter invokes.
func (a *Adapter) Name() string { return a.name }

// Timeout returns the per-attempt deadline.
func (a *Adapter) Timeout() time.Duration { return a.timeout }

// Invoke runs the operation under the adapter's deadline. A deadline
// hit surfaces as a KindTimeout Error; any unclassified runner error
// surfaces as KindTransient so the retry policy gets a chance.
func (a *Adapter) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.runner.Run(runCtx, a.name, args)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, Timeout(a.name, err)
	}
	var classified *Error
	if errors.As(err, &classified) {
		return nil, err
	}
	return nil, Transient(a.name, err)
}

// HashArgs returns the canonical digest of an activity's arguments,
// recorded in the execution history so replays can verify that a
// completed activity ran with the same inputs.
func HashArgs(args map[string]any) (string, error) {
	hash, err := canonicalize.CanonicalHash(args)
	if err != nil {
		return "", fmt.Errorf("hash activity args: %w", err)
	}
	return hash, nil
}
