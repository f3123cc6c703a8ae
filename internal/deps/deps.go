package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary that pipeline stages or CLI commands
// shell out to.
type Requirement struct {
	Name    string
	Command string
	// UsedBy names the stages or commands that invoke the binary.
	UsedBy []string
	// ConfigKey is the setting that overrides Command.
	ConfigKey string
	Optional  bool
}

// Description summarizes what the binary is needed for.
func (r Requirement) Description() string {
	if len(r.UsedBy) == 0 {
		return ""
	}
	return "used by " + strings.Join(r.UsedBy, ", ")
}

// Status reports whether a requirement resolved on this host.
type Status struct {
	Requirement
	// Path is the resolved executable when Available.
	Path      string
	Available bool
	Detail    string
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		results = append(results, resolve(req))
	}
	return results
}

func resolve(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured" + configHint(req)
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found%s", req.Command, configHint(req))
		return status
	}
	status.Path = path
	status.Available = true
	return status
}

func configHint(req Requirement) string {
	if req.ConfigKey == "" {
		return ""
	}
	return "; install it or set " + req.ConfigKey
}
