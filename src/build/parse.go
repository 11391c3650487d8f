package build

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// DockerfileInfo summarizes a Dockerfile for display and checks.
type DockerfileInfo struct {
	Stages      []Stage
	Args        []string
	Expose      []string
	EntryPoints []string // CMD and ENTRYPOINT instructions, verbatim
}

// Stage describes a single FROM stage in a Dockerfile.
type Stage struct {
	Name      string // alias from "AS name", empty if unnamed
	BaseImage string // the FROM image reference
	Line      int    // line number of the FROM instruction
}

// BaseImage returns the image of the final stage, or "".
func (i *DockerfileInfo) BaseImage() string {
	if len(i.Stages) == 0 {
		return ""
	}
	return i.Stages[len(i.Stages)-1].BaseImage
}

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// ARG <name>[=<default>]
	argRe = regexp.MustCompile(`(?i)^ARG\s+(\S+?)(?:=.*)?$`)
	// EXPOSE <port>[/<proto>]
	exposeRe = regexp.MustCompile(`(?i)^EXPOSE\s+(.+)`)
	// CMD ... / ENTRYPOINT ...
	entryRe = regexp.MustCompile(`(?i)^(CMD|ENTRYPOINT)\s+.+`)
)

// ParseDockerfile extracts stage, arg, expose, and entry point info.
// Regex-based, not a full AST; line continuations are not joined.
func ParseDockerfile(r io.Reader) (*DockerfileInfo, error) {
	info := &DockerfileInfo{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := fromRe.FindStringSubmatch(line); m != nil {
			info.Stages = append(info.Stages, Stage{
				BaseImage: m[1],
				Name:      m[2],
				Line:      lineNum,
			})
			continue
		}

		if m := argRe.FindStringSubmatch(line); m != nil {
			info.Args = append(info.Args, m[1])
			continue
		}

		if m := exposeRe.FindStringSubmatch(line); m != nil {
			info.Expose = append(info.Expose, strings.Fields(m[1])...)
			continue
		}

		if entryRe.MatchString(line) {
			info.EntryPoints = append(info.EntryPoints, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return info, nil
}
