// Package registry resolves which container registry an image reference
// targets and which credentials to log in with.
package registry

import (
	"strings"
)

// Environment variables holding registry credentials.
const (
	UsernameEnv = "WHANOS_REGISTRY_USERNAME"
	PasswordEnv = "WHANOS_REGISTRY_PASSWORD"
)

// HostFromImage returns the registry hostname leading an image reference, or
// "" when the reference has no registry component.
//
// The first path segment counts as a hostname only when it contains a dot or
// a colon, so "registry.example.com/app" and "localhost:5000/app" resolve
// while "library/nginx" does not. A bare single-label host without a port
// (e.g. "myregistry/app") is indistinguishable from an organization and is
// treated as one.
func HostFromImage(imageRef string) string {
	first, _, ok := strings.Cut(imageRef, "/")
	if !ok {
		return ""
	}
	if strings.ContainsAny(first, ".:") {
		return first
	}
	return ""
}

// Credentials are a username/password pair for docker login.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both halves are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// Getenv is satisfied by the captured environment in config.
type Getenv interface {
	Getenv(key string) string
}

// ResolveCredentials reads the credential pair from env.
func ResolveCredentials(env Getenv) Credentials {
	if env == nil {
		return Credentials{}
	}
	return Credentials{
		Username: env.Getenv(UsernameEnv),
		Password: env.Getenv(PasswordEnv),
	}
}

// Provider guesses the registry vendor from its hostname. Used for display only.
// Canonical names are the platform brand: docker, github, gitlab, quay, jfrog, harbor, gitea.
func Provider(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "":
		return ""
	case h == "docker.io" || h == "index.docker.io" || h == "registry-1.docker.io":
		return "docker"
	case h == "ghcr.io":
		return "github"
	case strings.Contains(h, "gitlab"):
		return "gitlab"
	case h == "quay.io":
		return "quay"
	case strings.Contains(h, "jfrog"):
		return "jfrog"
	case strings.Contains(h, "harbor"):
		return "harbor"
	case strings.Contains(h, "gitea") || strings.Contains(h, "forgejo") || strings.Contains(h, "codeberg"):
		return "gitea"
	case strings.HasPrefix(h, "localhost") || strings.HasPrefix(h, "127.0.0.1"):
		return "local"
	default:
		return "generic"
	}
}
