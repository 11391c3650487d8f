package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/whanos/src/build"
	"github.com/sofmeright/whanos/src/gitver"
	"github.com/sofmeright/whanos/src/output"
	"github.com/sofmeright/whanos/src/pipeline"
	"github.com/sofmeright/whanos/src/registry"
	"github.com/sofmeright/whanos/src/runner"
	"github.com/sofmeright/whanos/src/version"
)

var (
	bRepo      string
	bImage     string
	bRegistry  string
	bSkipTests bool
	bNoPush    bool
	bBuildArgs []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Detect, test, build, and push a repository image",
	Long: `Build a container image for a repository.

Detects the language from its marker file, writes a Dockerfile (honoring
whanos/Dockerfile.override and whanos/Dockerfile.append), runs the test
suite in the base image, logs in to the registry when credentials are set,
then builds and pushes the image.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&bRepo, "repo", ".", "repository root")
	buildCmd.Flags().StringVar(&bImage, "image", "", "image reference to build and push")
	buildCmd.Flags().StringVar(&bRegistry, "registry", "", "registry host to log in to (default: derived from --image)")
	buildCmd.Flags().BoolVar(&bSkipTests, "skip-tests", false, "skip the test stage")
	buildCmd.Flags().BoolVar(&bNoPush, "no-push", false, "build without pushing")
	buildCmd.Flags().StringArrayVar(&bBuildArgs, "build-arg", nil, "extra build argument KEY=VALUE (repeatable)")
	_ = buildCmd.MarkFlagRequired("image")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()
	log := newLogger()

	git, gitErr := gitver.Detect(bRepo)
	if gitErr != nil {
		log.V(1).Info("no git metadata", "reason", gitErr.Error())
	}
	output.ContextBlock(w, buildContextKV(git))

	docker := build.NewDocker(cfg.Docker.Binary, runner.NewExec(log))
	p := pipeline.New(cfg, docker, log)
	if git != nil {
		p.Revision = func(string) (string, error) { return git.SHA, nil }
	}

	p.OnWarning = func(msg string) {
		fmt.Fprintln(os.Stderr, output.Warn(msg, color))
	}

	output.SectionStart(w, "whanos_run", "Pipeline")
	p.OnStage = func(res pipeline.StageResult) {
		output.PhaseResult(w, res.Name, stageStatus(res), stageDetail(res), res.Duration, color)
	}

	run, err := p.Run(ctx, pipeline.Params{
		RepoRoot:  bRepo,
		Image:     bImage,
		Registry:  bRegistry,
		SkipTests: bSkipTests,
		SkipPush:  bNoPush,
		BuildArgs: bBuildArgs,
	})
	output.SectionEnd(w, "whanos_run")

	if verbose && run.Dockerfile.Content != "" {
		output.SectionStartCollapsed(w, "whanos_dockerfile", "Dockerfile")
		sec := output.NewSection(w, "Dockerfile ("+string(run.Dockerfile.Source)+")", 0, color)
		sec.Block(run.Dockerfile.Content)
		sec.Close()
		output.SectionEnd(w, "whanos_dockerfile")
	}

	renderSummary(w, run, time.Since(start), color)
	return err
}

func buildContextKV(git *gitver.Info) []output.KV {
	kv := []output.KV{
		{Key: "Repo", Value: bRepo},
		{Key: "Image", Value: bImage},
	}
	if git != nil {
		kv = append(kv, output.KV{Key: "Commit", Value: git.Short()})
		if git.Branch != "" {
			kv = append(kv, output.KV{Key: "Branch", Value: git.Branch})
		}
	}
	if host := registryHost(bRegistry, bImage); host != "" {
		kv = append(kv, output.KV{Key: "Registry", Value: fmt.Sprintf("%s (%s)", host, registry.Provider(host))})
	}
	kv = append(kv, output.KV{Key: "Whanos", Value: version.Version})
	return kv
}

// registryHost mirrors the pipeline's choice: the explicit flag, else the
// host segment of the image reference.
func registryHost(flag, image string) string {
	if flag != "" {
		return flag
	}
	return registry.HostFromImage(image)
}

func renderSummary(w io.Writer, run *pipeline.Run, elapsed time.Duration, color bool) {
	sec := output.NewSection(w, "Summary", elapsed, color)
	for _, res := range run.Stages {
		output.SummaryRow(w, res.Name, stageStatus(res), stageDetail(res), res.Duration, color)
	}
	sec.Separator()
	total := "success"
	if run.State == pipeline.StateFailed {
		total = "failed"
	}
	output.SummaryTotal(w, elapsed, total, color)
	sec.Close()
}

func stageStatus(res pipeline.StageResult) string {
	switch {
	case res.Name == pipeline.StageCleanup && res.Err != nil:
		return "warning"
	case res.Err != nil:
		return "failed"
	case res.State.Skipped():
		return "skipped"
	}
	return "success"
}

func stageDetail(res pipeline.StageResult) string {
	if res.Err != nil && res.Detail == "" {
		return firstLine(res.Err.Error())
	}
	return res.Detail
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
