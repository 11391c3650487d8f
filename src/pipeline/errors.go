package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sofmeright/whanos/src/runner"
)

// ConfigurationError reports a problem with the inputs or the inspected
// repository: bad parameters, no or ambiguous language, unreadable
// customizations. It is always raised before any temporary file exists.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// AuthenticationError reports a failed registry login.
type AuthenticationError struct {
	Registry string
	Err      error
}

func (e *AuthenticationError) Error() string {
	detail := e.Err.Error()
	var cerr *runner.CommandError
	if errors.As(e.Err, &cerr) && strings.TrimSpace(cerr.Stderr) != "" {
		detail = strings.TrimSpace(cerr.Stderr)
	}
	return fmt.Sprintf("docker login failed for registry %s: %s", e.Registry, detail)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// CleanupError reports that the temporary Dockerfile could not be removed.
// It is logged and recorded, never returned from Run.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("removing %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
