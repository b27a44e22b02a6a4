package provisioning

import (
	"fmt"
	"strings"
)

// ActivationStep reloads the service supervisor and brings the node agent
// into a running state. This is the terminal step: success here is the only
// path to a zero exit.
type ActivationStep struct{}

// Name implements Step.
func (s *ActivationStep) Name() string { return "activation" }

// Check implements Step. An already-running agent stays untouched on re-runs.
func (s *ActivationStep) Check(c *Context) (bool, error) {
	out, err := c.Runner.Run(c.Ctx, "systemctl", "is-active", "kubelet")
	return err == nil && strings.TrimSpace(out) == "active", nil
}

// Apply implements Step.
func (s *ActivationStep) Apply(c *Context) error {
	if _, err := c.Runner.Run(c.Ctx, "systemctl", "daemon-reload"); err != nil {
		return &ActivationError{Service: "kubelet", Err: err}
	}
	if _, err := c.Runner.Run(c.Ctx, "systemctl", "enable", "--now", "kubelet"); err != nil {
		return &ActivationError{Service: "kubelet", Err: err}
	}
	return nil
}

// Verify implements Step.
func (s *ActivationStep) Verify(c *Context) error {
	out, err := c.Runner.Run(c.Ctx, "systemctl", "is-active", "kubelet")
	if err != nil {
		return &ActivationError{Service: "kubelet", Err: err}
	}
	if state := strings.TrimSpace(out); state != "active" {
		return &ActivationError{Service: "kubelet", Err: fmt.Errorf("service state is %q, want active", state)}
	}
	return nil
}
