package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sofmeright/whanos/src/lang"
)

// CustomizationDir is the reserved repository subdirectory holding
// Dockerfile customizations.
const CustomizationDir = "whanos"

// Customization file names inside CustomizationDir.
const (
	OverrideFile = "Dockerfile.override"
	AppendFile   = "Dockerfile.append"
)

// Artifact is a customization file found in the repository.
type Artifact struct {
	Path    string
	Content string
}

// Customizations are the optional repository-provided Dockerfile overrides.
// Override replaces the generated Dockerfile entirely; Append extends it.
type Customizations struct {
	Override *Artifact
	Append   *Artifact
}

// LocateCustomizations reads whichever customization files exist under
// root/whanos. Missing files are not an error; unreadable ones are.
func LocateCustomizations(root string) (Customizations, error) {
	var c Customizations
	var err error

	if c.Override, err = readArtifact(filepath.Join(root, CustomizationDir, OverrideFile)); err != nil {
		return Customizations{}, err
	}
	if c.Append, err = readArtifact(filepath.Join(root, CustomizationDir, AppendFile)); err != nil {
		return Customizations{}, err
	}
	return c, nil
}

func readArtifact(path string) (*Artifact, error) {
	ok, err := lang.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("checking customization %s: %w", path, err)
	}
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading customization %s: %w", path, err)
	}
	return &Artifact{Path: path, Content: string(data)}, nil
}
