// Package lang holds the closed set of languages the orchestrator can build,
// one Profile per language, and the detector that maps a repository onto
// exactly one of them.
package lang

import (
	"fmt"
	"strings"
)

// Language identifies a supported source technology.
type Language int

const (
	C Language = iota
	Java
	JavaScript
	Python
	Befunge

	numLanguages
)

var languageNames = [...]string{
	C:          "c",
	Java:       "java",
	JavaScript: "javascript",
	Python:     "python",
	Befunge:    "befunge",
}

func (l Language) String() string {
	if l < 0 || l >= numLanguages {
		return fmt.Sprintf("language(%d)", int(l))
	}
	return languageNames[l]
}

// Profile is the fixed bundle of detection, imaging, and test behavior for
// one language.
type Profile interface {
	Language() Language
	Name() string

	// Marker is the repository-relative path whose presence identifies the language.
	Marker() string
	Detect(root string) (bool, error)

	// BaseImageEnv names the environment variable overriding the base image.
	BaseImageEnv() string
	DefaultBaseImage() string

	// TestCommand returns the test invocation for the repository, or nil
	// when the repository has nothing to test.
	TestCommand(root string) []string

	// Instructions returns the Dockerfile instructions following WORKDIR.
	Instructions(root string) []string
}

var profiles = [...]Profile{
	C:          cProfile{newBase(C, "Makefile")},
	Java:       javaProfile{newBase(Java, "app/pom.xml")},
	JavaScript: javascriptProfile{newBase(JavaScript, "package.json")},
	Python:     pythonProfile{newBase(Python, "requirements.txt")},
	Befunge:    befungeProfile{newBase(Befunge, "app/main.bf")},
}

// Every Language must have a profile slot; this fails to compile otherwise.
var _ = [1]struct{}{}[len(profiles)-int(numLanguages)]
var _ = [1]struct{}{}[len(languageNames)-int(numLanguages)]

func init() {
	for i, p := range profiles {
		if p == nil {
			panic(fmt.Sprintf("lang: no profile registered for %s", Language(i)))
		}
		if p.Language() != Language(i) {
			panic(fmt.Sprintf("lang: profile %s registered under %s", p.Language(), Language(i)))
		}
	}
}

// All returns every profile in declaration order.
func All() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles[:])
	return out
}

// Of returns the profile for a language.
func Of(l Language) Profile {
	return profiles[l]
}

// Get returns the profile with the given name (case-insensitive).
func Get(name string) (Profile, error) {
	for _, p := range profiles {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("lang: unknown language: %s", name)
}

// Names returns the names of all languages in declaration order.
func Names() []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name()
	}
	return names
}

// Markers returns the marker path of every language in declaration order.
func Markers() []string {
	markers := make([]string, len(profiles))
	for i, p := range profiles {
		markers[i] = p.Marker()
	}
	return markers
}

// base carries the data every profile shares.
type base struct {
	lang   Language
	marker string
}

func newBase(l Language, marker string) base {
	return base{lang: l, marker: marker}
}

func (b base) Language() Language { return b.lang }
func (b base) Name() string       { return b.lang.String() }
func (b base) Marker() string     { return b.marker }

func (b base) Detect(root string) (bool, error) {
	return Exists(join(root, b.marker))
}

func (b base) BaseImageEnv() string {
	return "WHANOS_BASE_IMAGE_" + strings.ToUpper(b.Name())
}

func (b base) DefaultBaseImage() string {
	return "whanos-" + b.Name() + ":latest"
}
