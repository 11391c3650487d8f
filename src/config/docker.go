package config

const defaultDockerBinary = "docker"

// DockerConfig holds container engine settings.
type DockerConfig struct {
	// Binary is the docker-compatible CLI to invoke. Default: "docker".
	Binary string `yaml:"binary"`

	// BuildArgs are KEY=VALUE pairs passed as --build-arg before any given
	// on the command line.
	BuildArgs []string `yaml:"build_args"`
}

// DefaultDockerConfig returns sensible defaults for docker builds.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Binary:    defaultDockerBinary,
		BuildArgs: []string{},
	}
}
