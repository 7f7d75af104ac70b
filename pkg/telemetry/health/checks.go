package health

import (
	"context"
	"errors"

	"mercator-hq/vigil/pkg/safety/catalog"
)

// Pinger is implemented by stores backed by an external connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck pings target when it implements Pinger. In-process stores have
// nothing to reach and always pass.
func PingCheck(target any) CheckFunc {
	return func(ctx context.Context) error {
		if p, ok := target.(Pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}

// CatalogCheck fails when no catalog with patterns is active. A failed
// reload leaves the previous catalog serving and does not fail the check.
func CatalogCheck(m *catalog.Manager) CheckFunc {
	return func(ctx context.Context) error {
		c := m.Current()
		if c == nil {
			return errors.New("no active catalog")
		}
		if c.Size() == 0 {
			return errors.New("active catalog has no patterns")
		}
		return nil
	}
}
