package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/whanos/src/build"
	"github.com/sofmeright/whanos/src/lang"
	"github.com/sofmeright/whanos/src/output"
	"github.com/sofmeright/whanos/src/pipeline"
)

var dfRepo string

var dockerfileCmd = &cobra.Command{
	Use:   "dockerfile",
	Short: "Print the Dockerfile a build would use",
	Long: `Print the Dockerfile for a repository without building anything.

The Dockerfile goes to stdout. With --verbose, a summary of where it came
from and what it runs is written to stderr.`,
	Args: cobra.NoArgs,
	RunE: runDockerfile,
}

func init() {
	dockerfileCmd.Flags().StringVar(&dfRepo, "repo", ".", "repository root")
	rootCmd.AddCommand(dockerfileCmd)
}

func runDockerfile(cmd *cobra.Command, args []string) error {
	p := pipeline.New(cfg, nil, newLogger())
	run, err := p.Plan(cmd.Context(), pipeline.Params{RepoRoot: dfRepo})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprint(os.Stdout, run.Dockerfile.Content); err != nil {
		return err
	}

	if !verbose {
		return nil
	}
	info, err := build.ParseDockerfile(strings.NewReader(run.Dockerfile.Content))
	if err != nil {
		return fmt.Errorf("parsing Dockerfile: %w", err)
	}

	color := output.UseColor()
	sec := output.NewSection(os.Stderr, "Plan", 0, color)
	sec.Row("%-16s→ %s (%s)", "language", run.Profile.Name(), run.Profile.Marker())
	sec.Row("%-16s→ %s", "source", run.Dockerfile.Source)
	sec.Row("%-16s→ %s", "base image", info.BaseImage())
	if run.Dockerfile.Source != build.SourceOverride {
		sec.Row("%-16s→ %s", "image env", run.Profile.BaseImageEnv())
		sec.Row("%-16s→ %s", "resolved", lang.ResolveBaseImage(run.Profile, cfg))
	}
	if len(info.EntryPoints) > 0 {
		sec.Row("%-16s→ %s", "entrypoint", info.EntryPoints[len(info.EntryPoints)-1])
	}
	if test := run.Profile.TestCommand(run.Params.RepoRoot); len(test) > 0 {
		sec.Row("%-16s→ %s", "tests", strings.Join(test, " "))
	} else {
		sec.Row("%-16s→ %s", "tests", "(none)")
	}
	sec.Close()
	return nil
}
