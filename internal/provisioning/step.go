// Package provisioning executes the ordered, idempotent steps that take a
// bare machine to a running, registered cluster node.
//
// Each step declares a precondition check, an apply action, and a
// verification. Re-applying a step whose target state is already in place is
// a no-op, so the whole pipeline can be re-run from the top after a partial
// failure instead of unwinding anything.
package provisioning

import (
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

// Step is one unit of the node provisioning pipeline.
type Step interface {
	// Name returns the human-readable name of this step.
	Name() string

	// Check reports whether the step's target state is already in place, in
	// which case Apply and Verify are skipped.
	Check(ctx *Context) (bool, error)

	// Apply performs the step's side effects.
	Apply(ctx *Context) error

	// Verify confirms the target state after Apply.
	Verify(ctx *Context) error
}

// Steps returns the full node provisioning pipeline in execution order.
func Steps() []Step {
	return []Step{
		&PreflightStep{},
		&CNIPluginsStep{},
		&RuntimeStep{},
		&AgentBinariesStep{},
		&CredentialsStep{},
		&KubeconfigStep{},
		&AgentConfigStep{},
		&ActivationStep{},
	}
}

// Run executes the steps sequentially, halting at the first failure.
// Partially applied state is fixed by re-running the pipeline, not unwound.
func Run(ctx *Context, steps []Step) error {
	start := time.Now()
	klog.Infof("Starting node provisioning with %d steps...", len(steps))

	for i, step := range steps {
		stepStart := time.Now()
		label := fmt.Sprintf("%s (%d/%d)", step.Name(), i+1, len(steps))

		done, err := step.Check(ctx)
		if err != nil {
			klog.Errorf("[%s] check failed: %v", label, err)
			return fmt.Errorf("%s step failed: %w", step.Name(), err)
		}
		if done {
			klog.Infof("[%s] already satisfied, skipping", label)
			continue
		}

		klog.Infof("[%s] applying", label)
		if err := step.Apply(ctx); err != nil {
			klog.Errorf("[%s] failed: %v", label, err)
			return fmt.Errorf("%s step failed: %w", step.Name(), err)
		}
		if err := step.Verify(ctx); err != nil {
			klog.Errorf("[%s] verification failed: %v", label, err)
			return fmt.Errorf("%s step failed: %w", step.Name(), err)
		}

		klog.Infof("[%s] completed in %v", label, time.Since(stepStart).Round(time.Millisecond))
	}

	klog.Infof("Node provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
