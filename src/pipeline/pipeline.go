// Package pipeline drives a single build run: detect the repository's
// language, resolve customizations, write the Dockerfile, then test, log in,
// build, and push, always removing the temporary Dockerfile on the way out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/sofmeright/whanos/src/build"
	"github.com/sofmeright/whanos/src/config"
	"github.com/sofmeright/whanos/src/lang"
	"github.com/sofmeright/whanos/src/registry"
)

// RevisionLabel is the OCI label carrying the source commit.
const RevisionLabel = "org.opencontainers.image.revision"

// Engine is the container engine surface the pipeline needs.
// *build.Docker implements it.
type Engine interface {
	RunTests(ctx context.Context, image, root string, command []string) error
	Login(ctx context.Context, host string, creds registry.Credentials) error
	Build(ctx context.Context, step build.BuildStep) error
	Push(ctx context.Context, ref string) error
}

// Params are the inputs of one run.
type Params struct {
	RepoRoot  string
	Image     string
	Registry  string // explicit registry host; derived from Image when empty
	SkipTests bool
	SkipPush  bool
	BuildArgs []string
}

// Run is the state of one pipeline execution. It is owned by a single call
// to Pipeline.Run and discarded afterwards.
type Run struct {
	Params Params
	State  State

	Profile        lang.Profile
	Customizations build.Customizations
	Dockerfile     build.Dockerfile
	DockerfilePath string
	Registry       string

	Stages   []StageResult
	Warnings []string
}

// Pipeline holds the collaborators shared by runs. A nil Config means
// defaults; Engine is only needed by Run, not Plan.
type Pipeline struct {
	Config *config.Config
	Engine Engine
	Log    logr.Logger

	// Revision resolves the commit to label the image with. Nil disables labels.
	Revision func(root string) (string, error)

	// TempDir is where the Dockerfile is written. Empty means os.TempDir().
	TempDir string

	// OnStage, when set, is called after every stage completes.
	OnStage func(StageResult)

	// OnWarning, when set, receives warnings instead of the logger.
	OnWarning func(string)
}

// New creates a pipeline.
func New(cfg *config.Config, engine Engine, log logr.Logger) *Pipeline {
	return &Pipeline{Config: cfg, Engine: engine, Log: log}
}

func (p *Pipeline) config() *config.Config {
	if p.Config == nil {
		return config.Default(nil)
	}
	return p.Config
}

type stage struct {
	name string
	fn   func(ctx context.Context, run *Run) (State, string, error)
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{StageDetect, p.detect},
		{StageCustomize, p.customize},
		{StageDockerfile, p.writeDockerfile},
		{StageTest, p.test},
		{StageLogin, p.login},
		{StageBuild, p.build},
		{StagePush, p.push},
	}
}

// Run executes every stage in order and stops at the first failure. Once the
// temporary Dockerfile exists it is removed exactly once, whatever happens;
// a removal failure is logged and never replaces the run's outcome.
func (p *Pipeline) Run(ctx context.Context, params Params) (run *Run, err error) {
	run = &Run{Params: params, State: StateStart}

	defer func() {
		if run.DockerfilePath != "" {
			p.cleanup(run)
		}
		if err != nil {
			run.State = StateFailed
			return
		}
		run.State = StateDone
	}()

	if err := p.prepare(run, true); err != nil {
		return run, err
	}

	for _, s := range p.stages() {
		if err := p.step(ctx, run, s); err != nil {
			return run, err
		}
	}
	return run, nil
}

// Plan resolves the language, customizations, and Dockerfile without
// writing or executing anything. Params.Image may be empty.
func (p *Pipeline) Plan(ctx context.Context, params Params) (*Run, error) {
	run := &Run{Params: params, State: StateStart}
	if err := p.prepare(run, false); err != nil {
		run.State = StateFailed
		return run, err
	}

	for _, s := range []stage{{StageDetect, p.detect}, {StageCustomize, p.customize}} {
		if err := p.step(ctx, run, s); err != nil {
			run.State = StateFailed
			return run, err
		}
	}
	run.Dockerfile = p.synthesize(run)
	return run, nil
}

func (p *Pipeline) step(ctx context.Context, run *Run, s stage) error {
	start := time.Now()
	state, detail, err := s.fn(ctx, run)
	res := StageResult{
		Name:     s.name,
		State:    state,
		Detail:   detail,
		Duration: time.Since(start),
		Err:      err,
	}
	if err != nil {
		res.State = StateFailed
	} else {
		run.State = state
	}
	run.Stages = append(run.Stages, res)
	if p.OnStage != nil {
		p.OnStage(res)
	}
	return err
}

// prepare validates params and makes the repository root absolute.
func (p *Pipeline) prepare(run *Run, requireImage bool) error {
	params := &run.Params

	if params.RepoRoot == "" {
		params.RepoRoot = "."
	}
	root, err := filepath.Abs(params.RepoRoot)
	if err != nil {
		return &ConfigurationError{Err: fmt.Errorf("resolving repository path: %w", err)}
	}
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return &ConfigurationError{Err: fmt.Errorf("repository path does not exist: %s", root)}
	}
	params.RepoRoot = root

	if requireImage && strings.TrimSpace(params.Image) == "" {
		return &ConfigurationError{Err: errors.New("image reference is required")}
	}
	for _, a := range params.BuildArgs {
		if k, _, _ := strings.Cut(a, "="); strings.TrimSpace(k) == "" {
			return &ConfigurationError{Err: fmt.Errorf("invalid build arg %q: expected KEY=VALUE", a)}
		}
	}
	return nil
}

func (p *Pipeline) detect(_ context.Context, run *Run) (State, string, error) {
	profile, err := lang.Detect(run.Params.RepoRoot)
	if err != nil {
		return "", "", &ConfigurationError{Err: err}
	}
	run.Profile = profile
	p.Log.Info("detected language", "language", profile.Name())
	return StateDetected, fmt.Sprintf("%s (%s)", profile.Name(), profile.Marker()), nil
}

func (p *Pipeline) customize(_ context.Context, run *Run) (State, string, error) {
	c, err := build.LocateCustomizations(run.Params.RepoRoot)
	if err != nil {
		return "", "", &ConfigurationError{Err: err}
	}
	run.Customizations = c

	var found []string
	if c.Override != nil {
		found = append(found, "override")
	}
	if c.Append != nil {
		found = append(found, "append")
	}
	if len(found) == 0 {
		return StateCustomizationsResolved, "none", nil
	}
	return StateCustomizationsResolved, strings.Join(found, ", "), nil
}

func (p *Pipeline) synthesize(run *Run) build.Dockerfile {
	return build.Synthesize(run.Profile, run.Params.RepoRoot, p.config(), run.Customizations)
}

// writeDockerfile materializes the Dockerfile in a fresh temporary file. The
// path is recorded before writing so a partial file is still cleaned up.
func (p *Pipeline) writeDockerfile(_ context.Context, run *Run) (State, string, error) {
	run.Dockerfile = p.synthesize(run)
	if run.Dockerfile.Source == build.SourceOverride {
		p.Log.Info("using repository-provided Dockerfile override", "path", run.Dockerfile.Path)
	}

	f, err := os.CreateTemp(p.TempDir, "whanos-*.Dockerfile")
	if err != nil {
		return "", "", fmt.Errorf("creating temporary Dockerfile: %w", err)
	}
	run.DockerfilePath = f.Name()

	if _, err := f.WriteString(run.Dockerfile.Content); err != nil {
		f.Close()
		return "", "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	return StateDescriptorReady, string(run.Dockerfile.Source), nil
}

func (p *Pipeline) test(ctx context.Context, run *Run) (State, string, error) {
	if run.Params.SkipTests {
		return StateTestsSkipped, "--skip-tests", nil
	}

	command := run.Profile.TestCommand(run.Params.RepoRoot)
	if len(command) == 0 {
		p.Log.Info("no test command configured; skipping test phase", "language", run.Profile.Name())
		return StateTestsSkipped, "no test command for " + run.Profile.Name(), nil
	}

	image := lang.ResolveBaseImage(run.Profile, p.config())
	p.Log.Info("running tests", "image", image, "command", strings.Join(command, " "))
	if err := p.Engine.RunTests(ctx, image, run.Params.RepoRoot, command); err != nil {
		return "", "", err
	}
	return StateTested, strings.Join(command, " "), nil
}

func (p *Pipeline) login(ctx context.Context, run *Run) (State, string, error) {
	host := run.Params.Registry
	if host == "" {
		host = registry.HostFromImage(run.Params.Image)
	}
	run.Registry = host
	if host == "" {
		return StateLoginSkipped, "no registry", nil
	}

	creds := registry.ResolveCredentials(p.config())
	if !creds.Complete() {
		p.warn(run, fmt.Sprintf("registry credentials for %s not provided (%s, %s); assuming docker login already performed",
			host, registry.UsernameEnv, registry.PasswordEnv))
		return StateLoginSkipped, host + " (no credentials)", nil
	}

	p.Log.Info("logging into registry", "registry", host, "username", creds.Username)
	if err := p.Engine.Login(ctx, host, creds); err != nil {
		return "", "", &AuthenticationError{Registry: host, Err: err}
	}
	return StateAuthenticated, fmt.Sprintf("%s as %s", host, creds.Username), nil
}

func (p *Pipeline) build(ctx context.Context, run *Run) (State, string, error) {
	args := make([]string, 0, len(p.config().Docker.BuildArgs)+len(run.Params.BuildArgs))
	args = append(args, p.config().Docker.BuildArgs...)
	args = append(args, run.Params.BuildArgs...)

	step := build.BuildStep{
		Dockerfile: run.DockerfilePath,
		Context:    run.Params.RepoRoot,
		Tag:        run.Params.Image,
		BuildArgs:  args,
		Labels:     p.labels(run.Params.RepoRoot),
	}

	p.Log.Info("building image", "image", run.Params.Image)
	if err := p.Engine.Build(ctx, step); err != nil {
		return "", "", err
	}
	return StateBuilt, run.Params.Image, nil
}

func (p *Pipeline) warn(run *Run, msg string) {
	run.Warnings = append(run.Warnings, msg)
	if p.OnWarning != nil {
		p.OnWarning(msg)
		return
	}
	p.Log.Info(msg)
}

func (p *Pipeline) labels(root string) map[string]string {
	if p.Revision == nil || !p.config().LabelsEnabled() {
		return nil
	}
	sha, err := p.Revision(root)
	if err != nil || sha == "" {
		p.Log.V(1).Info("no revision label", "reason", err)
		return nil
	}
	return map[string]string{RevisionLabel: sha}
}

func (p *Pipeline) push(ctx context.Context, run *Run) (State, string, error) {
	if run.Params.SkipPush {
		p.Log.Info("skipping image push (--no-push specified)")
		return StatePushSkipped, "--no-push", nil
	}

	p.Log.Info("pushing image", "image", run.Params.Image)
	if err := p.Engine.Push(ctx, run.Params.Image); err != nil {
		return "", "", err
	}
	return StatePushed, run.Params.Image, nil
}

// cleanup removes the temporary Dockerfile. Errors are logged only.
func (p *Pipeline) cleanup(run *Run) {
	start := time.Now()
	res := StageResult{
		Name:   StageCleanup,
		State:  StateCleaned,
		Detail: run.DockerfilePath,
	}

	if err := os.Remove(run.DockerfilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cerr := &CleanupError{Path: run.DockerfilePath, Err: err}
		p.Log.Error(cerr, "could not remove temporary Dockerfile")
		res.Err = cerr
	}

	res.Duration = time.Since(start)
	run.State = StateCleaned
	run.Stages = append(run.Stages, res)
	if p.OnStage != nil {
		p.OnStage(res)
	}
}
