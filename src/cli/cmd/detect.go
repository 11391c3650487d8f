package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/whanos/src/lang"
	"github.com/sofmeright/whanos/src/output"
)

var detectCmd = &cobra.Command{
	Use:   "detect [REPO...]",
	Short: "Report the detected language of one or more repositories",
	Long: `Detect the language of each repository from its marker file.

Repositories are inspected in parallel. The command fails if any repository
has no marker or more than one.`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

type detection struct {
	repo    string
	profile lang.Profile
	err     error
}

func runDetect(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	color := output.UseColor()
	w := os.Stdout

	results, err := detectAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	sec := output.NewSection(w, "Detect", 0, color)
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			output.RowStatus(sec, r.repo, firstLine(r.err.Error()), "failed", color)
			continue
		}
		output.RowStatus(sec, r.repo, fmt.Sprintf("%s (%s)", r.profile.Name(), r.profile.Marker()), "success", color)
	}
	sec.Close()

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories could not be detected", failed, len(results))
	}
	return nil
}

// detectAll runs detection for every repo concurrently. Results keep the
// order of repos; a failure in one repo does not stop the others. The
// returned error is set only when ctx is cancelled.
func detectAll(ctx context.Context, repos []string) ([]detection, error) {
	results := make([]detection, len(repos))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, repo := range repos {
		g.Go(func() error {
			results[i].repo = repo
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return err
			}
			fi, err := os.Stat(repo)
			if err != nil || !fi.IsDir() {
				results[i].err = fmt.Errorf("repository path does not exist: %s", repo)
				return nil
			}
			results[i].profile, results[i].err = lang.Detect(repo)
			return nil
		})
	}
	return results, g.Wait()
}
