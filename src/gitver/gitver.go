// Package gitver reads the commit and branch of the repository being built.
// It is used for the run context block and the image revision label.
package gitver

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when the directory is not inside a git worktree.
var ErrNotRepository = errors.New("gitver: not a git repository")

// Info holds git metadata for a worktree.
type Info struct {
	SHA    string // full commit hash
	Branch string // short branch name, "" for detached HEAD
}

// Short returns the abbreviated commit hash.
func (i *Info) Short() string {
	if len(i.SHA) > 7 {
		return i.SHA[:7]
	}
	return i.SHA
}

// Detect opens the repository containing rootDir and resolves HEAD.
func Detect(rootDir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(rootDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("gitver: opening %s: %w", rootDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("gitver: resolving HEAD: %w", err)
	}

	info := &Info{SHA: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}
