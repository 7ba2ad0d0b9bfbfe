// Package secrets holds backend credentials. A Context is loaded once at
// process start and passed by pointer into every backend constructor.
package secrets

import (
	"os"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"gopkg.in/yaml.v3"
)

// Well-known keys
const (
	DynatraceAPIToken = "dynatrace_api_token"
	BYOAPIKey         = "byo_llm_api_key"
	PrometheusToken   = "prometheus_bearer_token"
	DatabasePassword  = "database_password"
)

// envOverrides maps secret keys to the environment variables that override them
var envOverrides = map[string]string{
	DynatraceAPIToken: "DYNATRACE_API_TOKEN",
	BYOAPIKey:         "BYO_LLM_API_KEY",
	PrometheusToken:   "PROMETHEUS_BEARER_TOKEN",
	DatabasePassword:  "DATABASE_PASSWORD",
}

// Context is read-only after Load returns
type Context struct {
	values map[string]string
}

// Load reads a YAML (or JSON) key/value file, then applies environment
// overrides. An empty path loads from the environment only.
func Load(path string) (*Context, error) {
	values := make(map[string]string)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewConfigurationError("secrets", "failed to read %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, apperrors.NewConfigurationError("secrets", "invalid secrets file %s: %v", path, err)
		}
	}

	for key, env := range envOverrides {
		if v := os.Getenv(env); v != "" {
			values[key] = v
		}
	}
	return &Context{values: values}, nil
}

// FromMap builds a Context from literal values
func FromMap(values map[string]string) *Context {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Context{values: copied}
}

// Get returns a secret or the empty string
func (c *Context) Get(key string) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.values[key])
}

// Require returns a ConfigurationError naming component when key is unset
func (c *Context) Require(component, key string) (string, error) {
	v := c.Get(key)
	if v == "" {
		hint := key
		if env, ok := envOverrides[key]; ok {
			hint = key + " (or " + env + ")"
		}
		return "", apperrors.NewConfigurationError(component, "missing credential %s", hint)
	}
	return v, nil
}
