package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency PixelTerm relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	InstallHint string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	InstallHint string
	Available   bool
	Path        string
	Detail      string
}

const chafaInstallHint = "install chafa (apt install chafa, dnf install chafa, pacman -S chafa, or brew install chafa)"

// RendererRequirement describes the text-art renderer binary.
func RendererRequirement(command string) Requirement {
	return Requirement{
		Name:        "Renderer",
		Command:     command,
		Description: "Converts images to terminal output",
		InstallHint: chafaInstallHint,
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			InstallHint: strings.TrimSpace(req.InstallHint),
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// RequireAll returns an error naming every unavailable dependency along with
// its install hint.
func RequireAll(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if status.Available {
			continue
		}
		line := fmt.Sprintf("%s: %s", status.Name, status.Detail)
		if status.InstallHint != "" {
			line += "; " + status.InstallHint
		}
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing dependencies: %s", strings.Join(missing, "; "))
}
