package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/vigil/pkg/config"
)

func writeSecret(t *testing.T, dir, name, value string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), mode); err != nil {
		t.Fatalf("failed to write secret: %v", err)
	}
	// WriteFile honours the umask; force the exact mode under test.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod secret: %v", err)
	}
}

func TestEnvProvider_Lookup(t *testing.T) {
	t.Setenv("TEST_SECRET_DASHBOARD_KEY", "from-env")
	p := NewEnvProvider("TEST_SECRET_")

	value, err := p.Lookup(context.Background(), "dashboard-key")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if value != "from-env" {
		t.Errorf("expected from-env, got %q", value)
	}

	_, err = p.Lookup(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_Lookup(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "dashboard-key", "from-file\n", 0600)
	writeSecret(t, dir, "readonly-key", "ro", 0400)
	writeSecret(t, dir, "loose-key", "loose", 0644)

	p := NewFileProvider(dir)
	ctx := context.Background()

	value, err := p.Lookup(ctx, "dashboard-key")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if value != "from-file" {
		t.Errorf("expected trimmed value, got %q", value)
	}

	if _, err := p.Lookup(ctx, "readonly-key"); err != nil {
		t.Errorf("expected 0400 file to be accepted, got %v", err)
	}

	_, err = p.Lookup(ctx, "loose-key")
	if err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Errorf("expected insecure permissions error, got %v", err)
	}

	if _, err := p.Lookup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_RejectsTraversal(t *testing.T) {
	p := NewFileProvider(t.TempDir())

	for _, name := range []string{"../etc/passwd", "a/b", "", ".hidden"} {
		_, err := p.Lookup(context.Background(), name)
		if err == nil {
			t.Errorf("expected error for %q", name)
			continue
		}
		if errors.Is(err, ErrNotFound) {
			t.Errorf("expected invalid name error for %q, got not found", name)
		}
	}
}

func TestResolver_Order(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "shared", "file-value", 0600)
	t.Setenv("TEST_SECRET_SHARED", "env-value")
	t.Setenv("TEST_SECRET_ENV_ONLY", "env-only")

	r := NewResolver(NewFileProvider(dir), NewEnvProvider("TEST_SECRET_"))
	ctx := context.Background()

	if v, _ := r.Lookup(ctx, "shared"); v != "file-value" {
		t.Errorf("expected file provider to win, got %q", v)
	}
	if v, _ := r.Lookup(ctx, "env-only"); v != "env-only" {
		t.Errorf("expected env fallback, got %q", v)
	}
	if _, err := r.Lookup(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_StopsOnProviderFailure(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "shared", "loose", 0644)
	t.Setenv("TEST_SECRET_SHARED", "env-value")

	r := NewResolver(NewFileProvider(dir), NewEnvProvider("TEST_SECRET_"))
	if _, err := r.Lookup(context.Background(), "shared"); err == nil {
		t.Fatal("expected insecure file to fail instead of falling back")
	}
}

func TestResolver_Expand(t *testing.T) {
	t.Setenv("TEST_SECRET_A", "alpha")
	r := NewResolver(NewEnvProvider("TEST_SECRET_"))
	ctx := context.Background()

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "plain-key", want: "plain-key"},
		{input: "${secret:a}", want: "alpha"},
		{input: "sk-${secret:a}-1", want: "sk-alpha-1"},
		{input: "${secret:missing}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := r.Expand(ctx, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolver_ResolveKeys(t *testing.T) {
	t.Setenv("TEST_SECRET_OPS", "ops-secret")
	r := NewResolver(nil, NewEnvProvider("TEST_SECRET_"))

	keys := []config.APIKeyConfig{
		{Name: "ops", Key: "${secret:ops}"},
		{Name: "literal", Key: "literal-key", Disabled: true},
	}
	resolved, err := r.ResolveKeys(context.Background(), keys)
	if err != nil {
		t.Fatalf("ResolveKeys failed: %v", err)
	}
	if resolved[0].Key != "ops-secret" {
		t.Errorf("expected resolved key, got %q", resolved[0].Key)
	}
	if resolved[1].Key != "literal-key" || !resolved[1].Disabled {
		t.Errorf("expected literal key unchanged, got %+v", resolved[1])
	}
	if keys[0].Key != "${secret:ops}" {
		t.Error("expected input slice to be left untouched")
	}

	_, err = r.ResolveKeys(context.Background(), []config.APIKeyConfig{{Name: "bad", Key: "${secret:missing}"}})
	if err == nil || !strings.Contains(err.Error(), `api key "bad"`) {
		t.Errorf("expected error naming the key, got %v", err)
	}
}
