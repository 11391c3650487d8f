package lang

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/samber/lo"
)

// DetectError reports that a repository did not resolve to exactly one language.
type DetectError struct {
	Root    string
	Matches []string // empty when nothing matched
}

func (e *DetectError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("unable to detect repository language in %s: make sure the repo contains exactly one of: %s",
			e.Root, strings.Join(Markers(), ", "))
	}
	return fmt.Sprintf("repository matches multiple language detectors: %s: ensure it only meets one language criterion",
		strings.Join(e.Matches, ", "))
}

// Ambiguous reports whether more than one language matched.
func (e *DetectError) Ambiguous() bool {
	return len(e.Matches) > 1
}

// Detect evaluates every profile against root and returns the single match.
// Zero or several matches are both errors; there is no tie-breaking.
func Detect(root string) (Profile, error) {
	var matches []Profile
	for _, p := range profiles {
		ok, err := p.Detect(root)
		if err != nil {
			return nil, fmt.Errorf("checking %s marker %s: %w", p.Name(), p.Marker(), err)
		}
		if ok {
			matches = append(matches, p)
		}
	}

	if len(matches) != 1 {
		return nil, &DetectError{
			Root: root,
			Matches: lo.Map(matches, func(p Profile, _ int) string {
				return p.Name()
			}),
		}
	}
	return matches[0], nil
}

// Exists reports whether path is present. A symlink counts even when its
// target is missing. Only absence is reported as false; any other lstat
// failure, such as a permission error on a parent directory, is returned.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return false, nil
	}
	return false, err
}

func join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
