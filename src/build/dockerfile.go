package build

import (
	"strings"

	"github.com/sofmeright/whanos/src/lang"
)

// WorkDir is where the repository lives inside both the test container and
// the built image.
const WorkDir = "/workspace"

const (
	generatedHeader = "# Generated by Whanos orchestrator. Do not edit."
	appendBegin     = "# --- Begin repository-provided customizations ---"
	appendEnd       = "# --- End repository-provided customizations ---"
)

// Source records where a Dockerfile's content came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceAppended  Source = "generated+append"
	SourceOverride  Source = "override"
)

// Dockerfile is a fully composed build descriptor.
type Dockerfile struct {
	Content string
	Source  Source
	Path    string // customization file the content came from, if any
}

// Synthesize produces the Dockerfile for a repository. An override is used
// verbatim and nothing else is consulted; otherwise the profile's
// instructions are rendered on top of the resolved base image.
func Synthesize(p lang.Profile, root string, src lang.BaseImageSource, c Customizations) Dockerfile {
	if c.Override != nil {
		return Dockerfile{Content: c.Override.Content, Source: SourceOverride, Path: c.Override.Path}
	}

	var snippet string
	df := Dockerfile{Source: SourceGenerated}
	if c.Append != nil {
		snippet = c.Append.Content
		df.Source = SourceAppended
		df.Path = c.Append.Path
	}
	df.Content = RenderDockerfile(p, root, lang.ResolveBaseImage(p, src), snippet)
	return df
}

// RenderDockerfile renders the generated Dockerfile. The output depends only
// on its inputs.
func RenderDockerfile(p lang.Profile, root, baseImage, snippet string) string {
	lines := []string{
		generatedHeader,
		"FROM " + baseImage,
		"WORKDIR " + WorkDir,
	}
	lines = append(lines, p.Instructions(root)...)

	if snippet != "" {
		lines = append(lines,
			"",
			appendBegin,
			strings.TrimSpace(snippet),
			appendEnd,
		)
	}

	return strings.Join(lines, "\n") + "\n"
}
