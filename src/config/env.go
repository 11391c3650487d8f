package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env is a read-only snapshot of environment variables.
type Env map[string]string

// CaptureEnv snapshots the current process environment.
func CaptureEnv() Env {
	env := Env{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadEnvFile merges a dotenv file into the process environment. Variables
// already set in the environment are not overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	return godotenv.Load(path)
}

// Get returns the value for key, or "" if unset.
func (e Env) Get(key string) string {
	return e[key]
}

// With returns a copy of e with the given key set. Handy in tests.
func (e Env) With(key, value string) Env {
	out := make(Env, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[key] = value
	return out
}
