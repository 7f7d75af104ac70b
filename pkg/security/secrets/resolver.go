package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"mercator-hq/vigil/pkg/config"
)

// secretRef matches ${secret:name} references.
var secretRef = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver tries its providers in order until one returns a value.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver over the given providers. Nil providers
// are skipped.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{logger: slog.Default().With("component", "secrets")}
	for _, p := range providers {
		if p != nil {
			r.providers = append(r.providers, p)
		}
	}
	return r
}

// Lookup returns the value from the first provider that holds name.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, p := range r.providers {
		value, err := p.Lookup(ctx, name)
		if err == nil {
			r.logger.Debug("secret resolved", "name", redact(name), "provider", p.Name())
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: %w", p.Name(), err)
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s (no providers configured)", ErrNotFound, name)
	}
	return "", errors.Join(errs...)
}

// Expand replaces every ${secret:name} reference in s. Text without
// references is returned unchanged.
func (r *Resolver) Expand(ctx context.Context, s string) (string, error) {
	var errs []error
	out := secretRef.ReplaceAllStringFunc(s, func(match string) string {
		name := secretRef.FindStringSubmatch(match)[1]
		value, err := r.Lookup(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %q: %w", name, err))
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// ResolveKeys returns a copy of keys with every reference expanded.
func (r *Resolver) ResolveKeys(ctx context.Context, keys []config.APIKeyConfig) ([]config.APIKeyConfig, error) {
	out := make([]config.APIKeyConfig, len(keys))
	for i, k := range keys {
		value, err := r.Expand(ctx, k.Key)
		if err != nil {
			return nil, fmt.Errorf("api key %q: %w", k.Name, err)
		}
		k.Key = value
		out[i] = k
	}
	return out, nil
}

// redact keeps secret names recognisable in logs without printing them.
func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
