package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix namespaces secret environment variables.
const DefaultEnvPrefix = "VIGIL_SECRET_"

// EnvProvider reads secrets from environment variables. The name
// "dashboard-key" is read from <prefix>DASHBOARD_KEY.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment provider with the given prefix.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// Lookup implements Provider.
func (p *EnvProvider) Lookup(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: %s (env var: %s)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// Name implements Provider.
func (p *EnvProvider) Name() string {
	return "env"
}

func (p *EnvProvider) envVar(name string) string {
	return p.prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
