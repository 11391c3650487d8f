package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/whanos/src/build"
	"github.com/sofmeright/whanos/src/config"
	"github.com/sofmeright/whanos/src/lang"
	"github.com/sofmeright/whanos/src/registry"
	"github.com/sofmeright/whanos/src/runner"
	"github.com/sofmeright/whanos/src/runner/runnertest"
)

func writeTempFile(t *testing.T, root, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

type harness struct {
	pipeline *Pipeline
	rec      *runnertest.Recorder
	tmp      string

	// dockerfile holds the temp Dockerfile content as seen at build time.
	dockerfile string
}

func newHarness(t *testing.T, env config.Env) *harness {
	t.Helper()

	h := &harness{rec: &runnertest.Recorder{}, tmp: t.TempDir()}
	h.rec.OnRun = func(cmd runner.Command) {
		if len(cmd.Args) > 2 && cmd.Args[0] == "build" && cmd.Args[1] == "-f" {
			data, err := os.ReadFile(cmd.Args[2])
			if err == nil {
				h.dockerfile = string(data)
			}
		}
	}

	h.pipeline = New(config.Default(env), build.NewDocker("docker", h.rec), testr.New(t))
	h.pipeline.TempDir = h.tmp
	return h
}

// leftovers lists files remaining in the pipeline's temp dir.
func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.tmp)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func stageStates(run *Run) []State {
	states := make([]State, len(run.Stages))
	for i, s := range run.Stages {
		states[i] = s.State
	}
	return states
}

func TestRunNativeRepository(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", []byte("all:\n\tcc -o compiled-app main.c\n"))
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{
		RepoRoot: root,
		Image:    "registry.example.com/org/app:1.0",
	})
	require.NoError(t, err)

	assert.Equal(t, lang.C, run.Profile.Language())
	assert.Equal(t, StateDone, run.State)
	assert.Equal(t, []string{"build", "push"}, h.rec.Subcommands())
	assert.Contains(t, h.dockerfile, "RUN make\n")
	assert.Contains(t, h.dockerfile, `CMD ["./compiled-app"]`)
	assert.Equal(t, run.Dockerfile.Content, h.dockerfile)

	assert.Equal(t, []State{
		StateDetected,
		StateCustomizationsResolved,
		StateDescriptorReady,
		StateTestsSkipped,
		StateLoginSkipped,
		StateBuilt,
		StatePushed,
		StateCleaned,
	}, stageStates(run))

	assert.NoFileExists(t, run.DockerfilePath)
	assert.Empty(t, h.leftovers(t))
}

func TestRunJavaScriptTestsInBaseImage(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "package.json", []byte(`{"name":"app","scripts":{"test":"jest"}}`))
	h := newHarness(t, config.Env{"WHANOS_BASE_IMAGE_JAVASCRIPT": "node-base:20"})

	_, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev", SkipPush: true})
	require.NoError(t, err)

	call, ok := h.rec.Find("run")
	require.True(t, ok)
	assert.Equal(t, []string{
		"run", "--rm", "-v", root + ":/workspace", "-w", "/workspace",
		"node-base:20", "npm", "test", "--", "--watch=false",
	}, call.Command.Args)
	assert.Equal(t, []string{"run", "build"}, h.rec.Subcommands())
}

func TestRunAmbiguousRepository(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "app/pom.xml", []byte("<project/>"))
	writeTempFile(t, root, "requirements.txt", nil)
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev"})

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	var derr *lang.DetectError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []string{"java", "python"}, derr.Matches)

	assert.Equal(t, StateFailed, run.State)
	assert.Empty(t, run.DockerfilePath)
	assert.Empty(t, h.rec.Calls())
	assert.Empty(t, h.leftovers(t))
}

func TestRunNoLanguage(t *testing.T) {
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: t.TempDir(), Image: "app:dev"})

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "unable to detect repository language")
	assert.Len(t, run.Stages, 1)
	assert.Empty(t, h.rec.Calls())
}

func TestRunOverrideIsUsedVerbatim(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "requirements.txt", nil)
	override := "FROM python:3.12-slim\nCOPY . /srv\nCMD [\"python\", \"/srv/main.py\"]\n"
	writeTempFile(t, root, "whanos/Dockerfile.override", []byte(override))
	writeTempFile(t, root, "whanos/Dockerfile.append", []byte("EXPOSE 9999\n"))
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev", SkipTests: true, SkipPush: true})
	require.NoError(t, err)

	assert.Equal(t, build.SourceOverride, run.Dockerfile.Source)
	assert.Equal(t, override, h.dockerfile)
	assert.NotContains(t, h.dockerfile, "EXPOSE 9999")
}

func TestRunAppend(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "app/main.bf", []byte("@"))
	writeTempFile(t, root, "whanos/Dockerfile.append", []byte("\nLABEL team=core\n\n"))
	h := newHarness(t, nil)

	_, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev", SkipPush: true})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(h.dockerfile,
		"\n\n# --- Begin repository-provided customizations ---\nLABEL team=core\n# --- End repository-provided customizations ---\n"))
}

func TestRunSkipTests(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "app/pom.xml", []byte("<project/>"))
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev", SkipTests: true})
	require.NoError(t, err)

	assert.Zero(t, h.rec.Count("run"))
	assert.Equal(t, StateTestsSkipped, run.Stages[3].State)
}

func TestRunSkipPush(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "reg.io/app:1", SkipPush: true})
	require.NoError(t, err)

	assert.Equal(t, 1, h.rec.Count("build"))
	assert.Zero(t, h.rec.Count("push"))
	assert.Equal(t, StatePushSkipped, run.Stages[6].State)
}

func TestRunFailureAtEachStage(t *testing.T) {
	boom := &runner.CommandError{Command: "docker x", ExitCode: 1, Stderr: "denied"}

	tests := []struct {
		fail   string
		called []string
		stage  string
	}{
		{fail: "run", called: []string{"run"}, stage: StageTest},
		{fail: "login", called: []string{"run", "login"}, stage: StageLogin},
		{fail: "build", called: []string{"run", "login", "build"}, stage: StageBuild},
		{fail: "push", called: []string{"run", "login", "build", "push"}, stage: StagePush},
	}

	for _, tt := range tests {
		t.Run(tt.fail, func(t *testing.T) {
			root := t.TempDir()
			writeTempFile(t, root, "app/pom.xml", []byte("<project/>"))
			h := newHarness(t, config.Env{
				registry.UsernameEnv: "bot",
				registry.PasswordEnv: "pw",
			})
			h.rec.Fail = map[string]error{tt.fail: boom}

			run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "reg.io/org/app:1"})
			require.Error(t, err)

			assert.Equal(t, tt.called, h.rec.Subcommands())
			assert.Equal(t, StateFailed, run.State)

			var cerr *runner.CommandError
			require.ErrorAs(t, err, &cerr)
			assert.Same(t, boom, cerr)

			failed := run.Stages[len(run.Stages)-2]
			assert.Equal(t, tt.stage, failed.Name)
			assert.Equal(t, StateFailed, failed.State)

			last := run.Stages[len(run.Stages)-1]
			assert.Equal(t, StageCleanup, last.Name)
			assert.NoFileExists(t, run.DockerfilePath)
			assert.Empty(t, h.leftovers(t))
		})
	}
}

func TestRunLoginWithCredentials(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, config.Env{
		registry.UsernameEnv: "bot",
		registry.PasswordEnv: "hunter2",
	})

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "localhost:5000/app:1", SkipPush: true})
	require.NoError(t, err)

	call, ok := h.rec.Find("login")
	require.True(t, ok)
	assert.Equal(t, []string{"login", "localhost:5000", "-u", "bot", "--password-stdin"}, call.Command.Args)
	assert.Equal(t, "hunter2", call.Stdin)
	for _, c := range h.rec.Calls() {
		assert.NotContains(t, c.Command.Args, "hunter2")
	}
	assert.Equal(t, "localhost:5000", run.Registry)
	assert.Equal(t, StateAuthenticated, run.Stages[4].State)
}

func TestRunExplicitRegistry(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, config.Env{
		registry.UsernameEnv: "bot",
		registry.PasswordEnv: "pw",
	})

	_, err := h.pipeline.Run(context.Background(), Params{
		RepoRoot: root,
		Image:    "org/app:1",
		Registry: "docker.io",
		SkipPush: true,
	})
	require.NoError(t, err)

	call, ok := h.rec.Find("login")
	require.True(t, ok)
	assert.Equal(t, "docker.io", call.Command.Args[1])
}

func TestRunLoginSkippedWithoutCredentials(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, config.Env{registry.UsernameEnv: "bot"})
	var warned []string
	h.pipeline.OnWarning = func(msg string) { warned = append(warned, msg) }

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "reg.io/app:1"})
	require.NoError(t, err)

	assert.Zero(t, h.rec.Count("login"))
	assert.Equal(t, StateLoginSkipped, run.Stages[4].State)
	assert.Equal(t, []string{"build", "push"}, h.rec.Subcommands())

	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], "reg.io")
	assert.Contains(t, warned[0], registry.PasswordEnv)
	assert.Equal(t, warned, run.Warnings)
}

func TestRunLoginSkippedWithoutRegistry(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, config.Env{
		registry.UsernameEnv: "bot",
		registry.PasswordEnv: "pw",
	})

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "library/app:1", SkipPush: true})
	require.NoError(t, err)

	assert.Zero(t, h.rec.Count("login"))
	assert.Empty(t, run.Registry)
}

func TestRunLoginFailureIsAuthenticationError(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, config.Env{
		registry.UsernameEnv: "bot",
		registry.PasswordEnv: "pw",
	})
	h.rec.Fail = map[string]error{"login": &runner.CommandError{
		Command: "docker login", ExitCode: 1, Stderr: "unauthorized: incorrect username or password\n",
	}}

	_, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "reg.io/app:1"})

	var aerr *AuthenticationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "reg.io", aerr.Registry)
	assert.Equal(t, "docker login failed for registry reg.io: unauthorized: incorrect username or password", err.Error())
	assert.Zero(t, h.rec.Count("build"))
	assert.Empty(t, h.leftovers(t))
}

func TestRunBuildArgsAndLabels(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, nil)
	h.pipeline.Config.Docker.BuildArgs = []string{"FROM_CONFIG=1"}
	h.pipeline.Revision = func(string) (string, error) { return "abc123", nil }

	_, err := h.pipeline.Run(context.Background(), Params{
		RepoRoot:  root,
		Image:     "app:dev",
		SkipPush:  true,
		BuildArgs: []string{"VERSION=1.2.3", "EMPTY="},
	})
	require.NoError(t, err)

	call, ok := h.rec.Find("build")
	require.True(t, ok)
	args := call.Command.Args
	assert.Equal(t, root, args[len(args)-1])
	assert.Contains(t, strings.Join(args, " "),
		"--build-arg FROM_CONFIG=1 --build-arg VERSION=1.2.3 --build-arg EMPTY= --label org.opencontainers.image.revision=abc123")
	assert.Equal(t, []string{"FROM_CONFIG=1"}, h.pipeline.Config.Docker.BuildArgs)
}

func TestRunLabelsDisabled(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, nil)
	off := false
	h.pipeline.Config.Labels = &off
	h.pipeline.Revision = func(string) (string, error) { return "abc123", nil }

	_, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app:dev", SkipPush: true})
	require.NoError(t, err)

	call, _ := h.rec.Find("build")
	assert.NotContains(t, call.Command.Args, "--label")
}

func TestRunInvalidParams(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)

	tests := []struct {
		name   string
		params Params
	}{
		{"missing image", Params{RepoRoot: root}},
		{"missing repo", Params{RepoRoot: filepath.Join(root, "nope"), Image: "app"}},
		{"repo is a file", Params{RepoRoot: filepath.Join(root, "Makefile"), Image: "app"}},
		{"empty build arg key", Params{RepoRoot: root, Image: "app", BuildArgs: []string{"=x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			run, err := h.pipeline.Run(context.Background(), tt.params)

			var cerr *ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, StateFailed, run.State)
			assert.Empty(t, run.Stages)
			assert.Empty(t, h.rec.Calls())
		})
	}
}

func TestRunUnreadableCustomization(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "whanos", "Dockerfile.override"), 0o755))
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app"})

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Empty(t, run.DockerfilePath)
	assert.Empty(t, h.leftovers(t))
}

func TestRunUnreadableCustomizationDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	writeTempFile(t, root, "whanos/Dockerfile.override", []byte("FROM scratch\n"))
	dir := filepath.Join(root, "whanos")
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	h := newHarness(t, nil)

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app"})

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, run.DockerfilePath)
	assert.Empty(t, h.rec.Calls())
}

func TestRunCleanupFailureDoesNotMaskSuccess(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, nil)

	// Replace the Dockerfile with a non-empty directory so removal fails.
	h.rec.OnRun = func(cmd runner.Command) {
		if cmd.Args[0] != "build" {
			return
		}
		path := cmd.Args[2]
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))
	}

	run, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app", SkipPush: true})
	require.NoError(t, err)
	assert.Equal(t, StateDone, run.State)

	last := run.Stages[len(run.Stages)-1]
	assert.Equal(t, StageCleanup, last.Name)
	var cleanErr *CleanupError
	assert.True(t, errors.As(last.Err, &cleanErr))
}

func TestRunOnStage(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	h := newHarness(t, nil)

	var names []string
	h.pipeline.OnStage = func(r StageResult) { names = append(names, r.Name) }

	_, err := h.pipeline.Run(context.Background(), Params{RepoRoot: root, Image: "app"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		StageDetect, StageCustomize, StageDockerfile, StageTest,
		StageLogin, StageBuild, StagePush, StageCleanup,
	}, names)
}

func TestPlanWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "requirements.txt", []byte("flask\n"))
	h := newHarness(t, nil)

	run, err := h.pipeline.Plan(context.Background(), Params{RepoRoot: root})
	require.NoError(t, err)

	assert.Equal(t, lang.Python, run.Profile.Language())
	assert.Contains(t, run.Dockerfile.Content, "RUN pip install --no-cache-dir -r requirements.txt")
	assert.Empty(t, run.DockerfilePath)
	assert.Empty(t, h.leftovers(t))
	assert.Empty(t, h.rec.Calls())
}

func TestRunWithoutConfigUsesDefaults(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "Makefile", nil)
	rec := &runnertest.Recorder{}
	p := &Pipeline{Engine: build.NewDocker("docker", rec), TempDir: t.TempDir()}

	run, err := p.Run(context.Background(), Params{RepoRoot: root, Image: "app", SkipPush: true})
	require.NoError(t, err)
	assert.Equal(t, StateDone, run.State)
	assert.Contains(t, run.Dockerfile.Content, "FROM whanos-c:latest")
	assert.Equal(t, []string{"build"}, rec.Subcommands())
}

func TestStateSkipped(t *testing.T) {
	assert.True(t, StatePushSkipped.Skipped())
	assert.False(t, StatePushed.Skipped())
}
