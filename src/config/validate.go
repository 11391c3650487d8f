package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sofmeright/whanos/src/lang"
	"github.com/sofmeright/whanos/src/version"
)

// Validate checks a loaded Config against the running orchestrator version.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config, runningVersion string) (warnings []string, err error) {
	var errs []string

	// ── Version constraint ────────────────────────────────────────────────

	if cfg.Requires != "" {
		constraint, cerr := semver.NewConstraint(cfg.Requires)
		if cerr != nil {
			errs = append(errs, fmt.Sprintf("requires: invalid constraint %q: %v", cfg.Requires, cerr))
		} else if version.IsDev(runningVersion) {
			warnings = append(warnings, fmt.Sprintf("requires: development build; constraint %q not checked", cfg.Requires))
		} else if v, verr := semver.NewVersion(runningVersion); verr != nil {
			warnings = append(warnings, fmt.Sprintf("requires: running version %q is not semver; constraint %q not checked", runningVersion, cfg.Requires))
		} else if ok, reasons := constraint.Validate(v); !ok {
			msgs := make([]string, len(reasons))
			for i, r := range reasons {
				msgs[i] = r.Error()
			}
			errs = append(errs, fmt.Sprintf("requires: whanos %s does not satisfy %q: %s", v, cfg.Requires, strings.Join(msgs, "; ")))
		}
	}

	// ── Docker ────────────────────────────────────────────────────────────

	if strings.TrimSpace(cfg.Docker.Binary) == "" {
		errs = append(errs, "docker.binary: must not be empty")
	}
	for i, a := range cfg.Docker.BuildArgs {
		if k, _, _ := strings.Cut(a, "="); strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Sprintf("docker.build_args[%d]: %q is not KEY=VALUE", i, a))
		}
	}

	// ── Base images ───────────────────────────────────────────────────────

	names := make([]string, 0, len(cfg.BaseImages))
	for name := range cfg.BaseImages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, lerr := lang.Get(name); lerr != nil {
			warnings = append(warnings, fmt.Sprintf("base_images: unknown language %q (supported: %s)", name, strings.Join(lang.Names(), ", ")))
			continue
		}
		if strings.TrimSpace(cfg.BaseImages[name]) == "" {
			errs = append(errs, fmt.Sprintf("base_images.%s: must not be empty", name))
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}
	return warnings, nil
}
