package build

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sofmeright/whanos/src/registry"
	"github.com/sofmeright/whanos/src/runner"
)

// Docker drives the container engine CLI through a Runner.
type Docker struct {
	Binary string
	Runner runner.Runner
}

// NewDocker creates a Docker wrapper. An empty binary means "docker".
func NewDocker(binary string, r runner.Runner) *Docker {
	if binary == "" {
		binary = "docker"
	}
	return &Docker{Binary: binary, Runner: r}
}

// BuildStep is a single image build invocation.
type BuildStep struct {
	Dockerfile string
	Context    string
	Tag        string
	BuildArgs  []string          // KEY=VALUE, passed through in order
	Labels     map[string]string // emitted sorted by key
}

// RunTests runs command in a throwaway container from image with root
// mounted read-write at WorkDir.
func (d *Docker) RunTests(ctx context.Context, image, root string, command []string) error {
	_, err := d.Runner.Run(ctx, runner.Command{
		Name: d.Binary,
		Args: testArgs(image, root, command),
	})
	return err
}

func testArgs(image, root string, command []string) []string {
	args := []string{
		"run", "--rm",
		"-v", fmt.Sprintf("%s:%s", root, WorkDir),
		"-w", WorkDir,
		image,
	}
	return append(args, command...)
}

// Login authenticates against host. The password travels on stdin only.
func (d *Docker) Login(ctx context.Context, host string, creds registry.Credentials) error {
	_, err := d.Runner.Run(ctx, runner.Command{
		Name:    d.Binary,
		Args:    []string{"login", host, "-u", creds.Username, "--password-stdin"},
		Stdin:   strings.NewReader(creds.Password),
		Capture: true,
	})
	return err
}

// Build executes a single build step.
func (d *Docker) Build(ctx context.Context, step BuildStep) error {
	_, err := d.Runner.Run(ctx, runner.Command{
		Name: d.Binary,
		Args: buildArgs(step),
	})
	return err
}

// buildArgs constructs the docker build argument list.
func buildArgs(step BuildStep) []string {
	args := []string{"build"}

	if step.Dockerfile != "" {
		args = append(args, "-f", step.Dockerfile)
	}

	args = append(args, "-t", step.Tag)

	for _, a := range step.BuildArgs {
		args = append(args, "--build-arg", a)
	}

	keys := make([]string, 0, len(step.Labels))
	for k := range step.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, step.Labels[k]))
	}

	context := step.Context
	if context == "" {
		context = "."
	}
	return append(args, context)
}

// Push uploads a built image reference.
func (d *Docker) Push(ctx context.Context, ref string) error {
	_, err := d.Runner.Run(ctx, runner.Command{
		Name: d.Binary,
		Args: []string{"push", ref},
	})
	return err
}
