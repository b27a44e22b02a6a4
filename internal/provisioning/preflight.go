package provisioning

// requiredTools must be present on the node before anything is installed.
var requiredTools = []string{"systemctl", "swapoff", "tar"}

// PreflightStep verifies the local toolchain and disables swap, a hard
// platform precondition for the kubelet.
type PreflightStep struct{}

// Name implements Step.
func (s *PreflightStep) Name() string { return "preflight" }

// Check implements Step. Preflight always runs: swapoff is idempotent and
// swap may have been re-enabled since the last run.
func (s *PreflightStep) Check(_ *Context) (bool, error) { return false, nil }

// Apply implements Step.
func (s *PreflightStep) Apply(c *Context) error {
	for _, tool := range requiredTools {
		if _, err := c.Runner.LookPath(tool); err != nil {
			return &PreflightError{Check: tool, Err: err}
		}
	}

	if _, err := c.Runner.Run(c.Ctx, "swapoff", "-a"); err != nil {
		return &PreflightError{Check: "disable swap", Err: err}
	}

	return nil
}

// Verify implements Step.
func (s *PreflightStep) Verify(_ *Context) error { return nil }
