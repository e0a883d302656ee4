// Package deps checks for the external binaries a render shells out to.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency a render relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Media returns the ffmpeg and ffprobe requirements for the given commands.
// ffprobe is optional: it only backs tag lookup for containers without a
// native reader and post-encode verification.
func Media(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Encodes the video and decodes non-native audio"},
		{Name: "FFprobe", Command: ffprobe, Description: "Reads tags and verifies output", Optional: true},
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
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Require returns an error naming every missing non-optional dependency.
func Require(requirements []Requirement) error {
	var errs []error
	for _, status := range CheckBinaries(requirements) {
		if !status.Available && !status.Optional {
			errs = append(errs, fmt.Errorf("%s: %s", status.Name, status.Detail))
		}
	}
	return errors.Join(errs...)
}
